package generate

import (
	"context"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	shimerrors "github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/manifest"
	"github.com/ygrebnov/shim/internal/typesys"
)

const apiSource = `package api

type Named interface {
	Name() string
}

type Directory interface {
	Find(key string) Named
	Size() int
}

type Person struct{ Label string }

type People struct{ byKey map[string]*Person }

func (p *People) Find(key string) *Person { return p.byKey[key] }
`

func universe(t *testing.T) typesys.Universe {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "api.go", apiSource, 0)
	require.NoError(t, err)
	pkg, err := (&types.Config{}).Check("example.com/api", fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return typesys.GoTypes(pkg)
}

func named() manifest.Pair {
	return manifest.Pair{
		Contract: "example.com/api.Named",
		Target:   "*example.com/api.Person",
		Members:  map[string]manifest.Member{"Name": {Kind: "property", Rename: "Label"}},
	}
}

func TestRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := &manifest.Manifest{
		Package: "adapters",
		Path:    "example.com/api/adapters",
		Shells:  []string{"example.com/api.Named"},
		Pairs: []manifest.Pair{
			{Contract: "example.com/api.Directory", Target: "*example.com/api.People", Tolerate: true},
			named(),
		},
	}
	require.NoError(t, m.Validate())

	out, err := Run(context.Background(), zap.New(core), universe(t), m, 2)
	require.NoError(t, err)

	assert.Len(t, out.Plans, 2)
	require.NotNil(t, out.Adapters)
	assert.Contains(t, string(out.Adapters), "func NewDirectoryFromPeople(target *api.People) api.Directory {")
	assert.Contains(t, string(out.Adapters), "return NewNamedFromPerson(a.target.Find(p0))")
	require.NotNil(t, out.Shells)
	assert.Contains(t, string(out.Shells), "type NamedShell struct {")

	entries := logs.FilterMessage("generated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["pairs"])
	assert.Equal(t, int64(2), entries[0].ContextMap()["plans"])
}

func TestRun_ShellsOnly(t *testing.T) {
	m := &manifest.Manifest{Package: "adapters", Path: "example.com/api/adapters", Shells: []string{"example.com/api.Directory"}}
	out, err := Run(context.Background(), zap.NewNop(), universe(t), m, 0)
	require.NoError(t, err)
	assert.Nil(t, out.Adapters)
	assert.Empty(t, out.Plans)
	assert.Contains(t, string(out.Shells), "type DirectoryShell struct {")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []manifest.Pair
		shells  []string
		wantErr error
	}{
		{
			name:    "unknown contract",
			pairs:   []manifest.Pair{{Contract: "example.com/api.Missing"}},
			wantErr: shimerrors.ErrUnresolvableRef,
		},
		{
			name:    "unknown target",
			pairs:   []manifest.Pair{{Contract: "example.com/api.Named", Target: "example.com/api.Nobody"}},
			wantErr: shimerrors.ErrUnresolvableRef,
		},
		{
			name: "members configured twice",
			pairs: []manifest.Pair{
				named(),
				{
					Contract: "example.com/api.Named",
					Target:   "*example.com/api.People",
					Members:  map[string]manifest.Member{"Name": {Kind: "property"}},
				},
			},
			wantErr: shimerrors.ErrInvalidManifest,
		},
		{
			name:    "unresolved member",
			pairs:   []manifest.Pair{{Contract: "example.com/api.Directory", Target: "*example.com/api.People"}},
			wantErr: shimerrors.ErrUnresolvedMember,
		},
		{
			name:    "shell of a struct",
			shells:  []string{"example.com/api.Person"},
			wantErr: shimerrors.ErrInvalidContract,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &manifest.Manifest{Package: "adapters", Path: "example.com/api/adapters", Pairs: tt.pairs, Shells: tt.shells}
			_, err := Run(context.Background(), zap.NewNop(), universe(t), m, 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &manifest.Manifest{Package: "adapters", Path: "example.com/api/adapters", Pairs: []manifest.Pair{named()}}
	_, err := Run(ctx, zap.NewNop(), universe(t), m, 1)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
