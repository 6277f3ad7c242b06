package shim_test

import (
	"errors"
	"fmt"

	"github.com/ygrebnov/shim"
	"github.com/ygrebnov/shim/contract"
)

func ExampleAdapt_property() {
	r := shim.NewRegistry()
	if err := shim.Configure[Valuer](r, contract.For("Value", contract.AsProperty())); err != nil {
		fmt.Println("error:", err)
		return
	}

	v, err := shim.Adapt[Valuer](r, &valued{Value: "x"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("Value() ->", v.Value())

	// Output: Value() -> x
}

func ExampleAdapt_proxy() {
	r := shim.NewRegistry()
	err := shim.Configure[Greeter](r,
		contract.For("Greet", contract.WithProxy(contract.Override, shout)),
		contract.For("Farewell", contract.WithProxy(contract.Add, wave)),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	g, err := shim.Adapt[Greeter](r, &greeter{greeting: "hello"})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(g.Greet("world"))
	fmt.Println(g.Farewell())

	// Output:
	// HELLO, WORLD
	// bye
}

func ExampleCreateFactory() {
	r := shim.NewRegistry()
	_ = shim.Configure[Boxes](r, contract.For("Create", contract.AsConstructor(newBox[int])))
	_ = shim.Configure[Boxed](r, contract.For("Content", contract.Rename("Value")))

	f, err := shim.CreateFactory[Boxes](r)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("Create(5).Content() ->", f.Create(5).Content())

	// Output: Create(5).Content() -> 5
}

func ExampleTolerateMissingMembers() {
	r := shim.NewRegistry()
	_ = shim.TolerateMissingMembers[Partial](r)

	p, err := shim.Adapt[Partial](r, partial{})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(p.Present())
	fmt.Println(errors.Is(p.Absent(), shim.ErrNotImplemented))

	// Output:
	// here
	// true
}
