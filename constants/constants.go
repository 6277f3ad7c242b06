package constants

const Namespace = "shim"

// ErrorFieldNamespace for all exported error field keys.
const ErrorFieldNamespace = Namespace

// ShellFieldPrefix prefixes the func field a shell type declares per contract method.
const ShellFieldPrefix = "W"

// SetterPrefix is stripped from property setter names to find the backing field.
const SetterPrefix = "Set"

// GeneratedHeader marks files written by shimgen.
const GeneratedHeader = "// Code generated by shimgen. DO NOT EDIT."

// ImportPath is the import path of the runtime package generated code calls.
const ImportPath = "github.com/ygrebnov/shim"
