package plugin

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Signature names one method an extension intercepts: role, method name and ordered parameter types.
type Signature struct {
	role   Role
	method string
	params []reflect.Type
}

// NewSignature declares an intercepted method. It is validated when the SignatureSet is built.
func NewSignature(role Role, method string, params ...reflect.Type) Signature {
	return Signature{
		role:   role,
		method: method,
		params: slices.Clone(params),
	}
}

// SignatureOf declares the given registry method.
func SignatureOf(m Method) Signature {
	return NewSignature(m.Role(), m.Name(), m.Params()...)
}

// TypeOf returns the reflect.Type of T, including interface types like context.Context.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Role returns the declared role.
func (s Signature) Role() Role {
	return s.role
}

// Method returns the declared method name.
func (s Signature) Method() string {
	return s.method
}

// Params returns the declared parameter types.
func (s Signature) Params() []reflect.Type {
	return slices.Clone(s.params)
}

// Equal reports whether both signatures declare the same method.
func (s Signature) Equal(other Signature) bool {
	return s.role == other.role && s.method == other.method && sameTypes(s.params, other.params)
}

// String renders the signature as Role.Method(param types).
func (s Signature) String() string {
	return fmt.Sprintf("%s.%s(%s)", s.role, s.method, typeList(s.params))
}

// SignatureSet is the validated, immutable set of methods an extension intercepts, grouped by role.
// The zero value is empty.
type SignatureSet struct {
	methods    map[Role]mapset.Set[Method]
	signatures []Signature
}

// NewSignatureSet validates every signature against the role method registry.
// An unknown role or method fails here, never at call time.
func NewSignatureSet(signatures ...Signature) (SignatureSet, error) {
	if len(signatures) == 0 {
		return SignatureSet{}, configurationError(ErrEmptySignatureSet, nil)
	}

	set := SignatureSet{
		methods:    make(map[Role]mapset.Set[Method]),
		signatures: make([]Signature, 0, len(signatures)),
	}

	for _, signature := range signatures {
		if !signature.role.IsValid() {
			return SignatureSet{}, configurationError(ErrUnknownRole, fmt.Errorf("signature %s", signature))
		}

		method, err := LookupMethod(signature.role, signature.method, signature.params...)
		if err != nil {
			return SignatureSet{}, configurationError(err, nil)
		}

		methods, ok := set.methods[signature.role]
		if !ok {
			methods = mapset.NewThreadUnsafeSet[Method]()
			set.methods[signature.role] = methods
		}

		if methods.Add(method) {
			set.signatures = append(set.signatures, signature)
		}
	}

	return set, nil
}

// MustSignatureSet is like NewSignatureSet but panics on invalid signatures.
// It is meant for package-level declarations of built-in extensions.
func MustSignatureSet(signatures ...Signature) SignatureSet {
	set, err := NewSignatureSet(signatures...)
	if err != nil {
		panic(err)
	}

	return set
}

// Intercepting builds a SignatureSet from registry methods.
func Intercepting(methods ...Method) (SignatureSet, error) {
	signatures := make([]Signature, len(methods))
	for i, m := range methods {
		signatures[i] = SignatureOf(m)
	}

	return NewSignatureSet(signatures...)
}

// IsEmpty reports whether the set declares nothing.
func (s SignatureSet) IsEmpty() bool {
	return len(s.methods) == 0
}

// Roles returns the declared roles in dispatch order.
func (s SignatureSet) Roles() []Role {
	roles := make([]Role, 0, len(s.methods))
	for _, role := range Roles() {
		if _, ok := s.methods[role]; ok {
			roles = append(roles, role)
		}
	}

	return roles
}

// HasRole reports whether any method of role is declared.
func (s SignatureSet) HasRole(role Role) bool {
	_, ok := s.methods[role]
	return ok
}

// Contains reports whether m is declared.
func (s SignatureSet) Contains(m Method) bool {
	methods, ok := s.methods[m.Role()]
	return ok && methods.Contains(m)
}

// Signatures returns the declared signatures without duplicates, in declaration order.
func (s SignatureSet) Signatures() []Signature {
	return slices.Clone(s.signatures)
}

// String lists the declared signatures.
func (s SignatureSet) String() string {
	parts := make([]string, len(s.signatures))
	for i, signature := range s.signatures {
		parts[i] = signature.String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

// dispatchTable resolves the declared methods of role into a table indexed like methodTable.
func (s SignatureSet) dispatchTable(role Role) []bool {
	table := make([]bool, len(methodTable[role]))
	for _, m := range MethodsOf(role) {
		table[m.index] = s.Contains(m)
	}

	return table
}
