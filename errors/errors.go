package errors

import (
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/constants"
)

var namespace = errorc.Namespace(constants.Namespace)

// Sentinel errors. Use errors.Is to match.
var (
	ErrInvalidContract      = namespace.NewError("contract must be an interface of exported methods")
	ErrNilTarget            = namespace.NewError("nil target")
	ErrUnresolvedMember     = namespace.NewError("unresolved contract member")
	ErrAmbiguousMember      = namespace.NewError("ambiguous contract member")
	ErrProxyOverrideMissing = namespace.NewError("override proxy has no target member to override")
	ErrProxyAddExisting     = namespace.NewError("add proxy conflicts with an existing target member")
	ErrInvalidProxy         = namespace.NewError("proxy function signature does not fit contract member")
	ErrNotAdaptable         = namespace.NewError("type is not adaptable")
	ErrNotImplemented       = namespace.NewError("not implemented")
	ErrNotAdapter           = namespace.NewError("value is not an adapter")
	ErrInvalidMember        = namespace.NewError("contract member does not fit its declared kind")
	ErrUnknownMember        = namespace.NewError("configured member is not declared by contract")
	ErrUnresolvableRef      = namespace.NewError("cannot resolve reference")
	ErrAlreadyResolved      = namespace.NewError("contract already resolved")
	ErrNoShell              = namespace.NewError("no shell registered for contract")
	ErrInvalidShell         = namespace.NewError("shell does not fit contract")
	ErrNotEmittable         = namespace.NewError("cannot be expressed in generated source")
	ErrInvalidManifest      = namespace.NewError("invalid manifest")
	ErrInvalidConfig        = namespace.NewError("invalid configuration")
)

var newKey = errorc.KeyFactory(constants.ErrorFieldNamespace)

// Internal hierarchical segments used to build dotted keys.
const (
	keySegmentContract = "contract"
	keySegmentTarget   = "target"
	keySegmentMember   = "member"
	keySegmentProxy    = "proxy"
	keySegmentType     = "type"
)

// Exported structured error field keys
var (
	ErrorFieldContractType = newKey("type", keySegmentContract) // shim.contract.type
	ErrorFieldTargetType   = newKey("type", keySegmentTarget)   // shim.target.type
	ErrorFieldTargetMember = newKey("member", keySegmentTarget) // shim.target.member
)

var (
	ErrorFieldMemberName = newKey("name", keySegmentMember)       // shim.member.name
	ErrorFieldMemberKind = newKey("kind", keySegmentMember)       // shim.member.kind
	ErrorFieldCandidates = newKey("candidates", keySegmentMember) // shim.member.candidates
	ErrorFieldSignature  = newKey("signature", keySegmentMember)  // shim.member.signature
	ErrorFieldProxyFunc  = newKey("func", keySegmentProxy)        // shim.proxy.func
	ErrorFieldProxyMode  = newKey("mode", keySegmentProxy)        // shim.proxy.mode
	ErrorFieldFromType   = newKey("from", keySegmentType)         // shim.type.from
	ErrorFieldToType     = newKey("to", keySegmentType)           // shim.type.to
)

var (
	ErrorFieldReference = newKey("reference")
	ErrorFieldShellType = newKey("shell_type")
	ErrorFieldCause     = newKey("cause")
	ErrorFieldPath      = newKey("path")
	ErrorFieldPair      = newKey("pair")
)
