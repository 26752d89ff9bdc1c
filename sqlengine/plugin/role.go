package plugin

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

// Role identifies one of the four interceptable role interfaces.
type Role int

const (
	RoleExecutor Role = iota + 1
	RoleStatementHandler
	RoleParameterHandler
	RoleResultSetHandler
)

var roleTypes = map[Role]reflect.Type{
	RoleExecutor:         reflect.TypeOf((*sqlengine.Executor)(nil)).Elem(),
	RoleStatementHandler: reflect.TypeOf((*sqlengine.StatementHandler)(nil)).Elem(),
	RoleParameterHandler: reflect.TypeOf((*sqlengine.ParameterHandler)(nil)).Elem(),
	RoleResultSetHandler: reflect.TypeOf((*sqlengine.ResultSetHandler)(nil)).Elem(),
}

// Roles returns all roles in dispatch order.
func Roles() []Role {
	return []Role{RoleExecutor, RoleStatementHandler, RoleParameterHandler, RoleResultSetHandler}
}

// ParseRole maps a role name back to its Role.
func ParseRole(name string) (Role, error) {
	for _, role := range Roles() {
		if strings.EqualFold(role.String(), name) {
			return role, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// String returns the role interface name.
func (r Role) String() string {
	if t, ok := roleTypes[r]; ok {
		return t.Name()
	}

	return fmt.Sprintf("Role(%d)", int(r))
}

// Type returns the role interface type.
func (r Role) Type() reflect.Type {
	return roleTypes[r]
}

// IsValid reports whether r is one of the four roles.
func (r Role) IsValid() bool {
	_, ok := roleTypes[r]
	return ok
}

// ImplementedBy reports whether target's method set satisfies the role, including promoted methods.
func (r Role) ImplementedBy(target any) bool {
	roleType, ok := roleTypes[r]
	if !ok || target == nil {
		return false
	}

	return reflect.TypeOf(target).Implements(roleType)
}

func (r Role) bit() roleMask {
	return 1 << (uint(r) - 1)
}

type roleMask uint8

/***** method registry *****/

type methodInfo struct {
	name   string
	params []reflect.Type
}

// methodTable lists the methods of every role interface, in reflect's (name) order.
var methodTable = buildMethodTable()

func buildMethodTable() map[Role][]methodInfo {
	table := make(map[Role][]methodInfo, len(roleTypes))

	for role, roleType := range roleTypes {
		methods := make([]methodInfo, 0, roleType.NumMethod())

		for i := range roleType.NumMethod() {
			m := roleType.Method(i)
			params := make([]reflect.Type, 0, m.Type.NumIn())
			for j := range m.Type.NumIn() {
				params = append(params, m.Type.In(j))
			}

			methods = append(methods, methodInfo{name: m.Name, params: params})
		}

		table[role] = methods
	}

	return table
}

// Method identifies one method of one role interface. Methods are comparable.
type Method struct {
	role  Role
	index int
}

// LookupMethod finds the role method with exactly the given name and parameter types.
func LookupMethod(role Role, name string, params ...reflect.Type) (Method, error) {
	methods, ok := methodTable[role]
	if !ok {
		return Method{}, fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}

	for i, info := range methods {
		if info.name == name && sameTypes(info.params, params) {
			return Method{role: role, index: i}, nil
		}
	}

	return Method{}, fmt.Errorf("%w: %s.%s(%s)", ErrUnknownMethod, role, name, typeList(params))
}

// MethodsOf returns all methods of role.
func MethodsOf(role Role) []Method {
	methods := make([]Method, len(methodTable[role]))
	for i := range methods {
		methods[i] = Method{role: role, index: i}
	}

	return methods
}

// Role returns the role the method belongs to.
func (m Method) Role() Role {
	return m.role
}

// Name returns the method name.
func (m Method) Name() string {
	return m.info().name
}

// Params returns the parameter types of the method.
func (m Method) Params() []reflect.Type {
	params := m.info().params
	out := make([]reflect.Type, len(params))
	copy(out, params)

	return out
}

// String renders the method as Role.Name(param types).
func (m Method) String() string {
	info := m.info()
	return fmt.Sprintf("%s.%s(%s)", m.role, info.name, typeList(info.params))
}

func (m Method) info() methodInfo {
	return methodTable[m.role][m.index]
}

func mustMethod(role Role, name string) Method {
	for i, info := range methodTable[role] {
		if info.name == name {
			return Method{role: role, index: i}
		}
	}

	panic(fmt.Sprintf("plugin: %s has no method %s", role, name))
}

func sameTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func typeList(types []reflect.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			names[i] = "<nil>"
			continue
		}
		names[i] = t.String()
	}

	return strings.Join(names, ", ")
}

// The interceptable methods of every role.
var (
	ExecutorUpdate          = mustMethod(RoleExecutor, "Update")
	ExecutorQuery           = mustMethod(RoleExecutor, "Query")
	ExecutorQueryCursor     = mustMethod(RoleExecutor, "QueryCursor")
	ExecutorFlushStatements = mustMethod(RoleExecutor, "FlushStatements")
	ExecutorCreateCacheKey  = mustMethod(RoleExecutor, "CreateCacheKey")
	ExecutorIsCached        = mustMethod(RoleExecutor, "IsCached")
	ExecutorClearLocalCache = mustMethod(RoleExecutor, "ClearLocalCache")
	ExecutorCommit          = mustMethod(RoleExecutor, "Commit")
	ExecutorRollback        = mustMethod(RoleExecutor, "Rollback")
	ExecutorClose           = mustMethod(RoleExecutor, "Close")

	StatementHandlerPrepare      = mustMethod(RoleStatementHandler, "Prepare")
	StatementHandlerParameterize = mustMethod(RoleStatementHandler, "Parameterize")
	StatementHandlerBatch        = mustMethod(RoleStatementHandler, "Batch")
	StatementHandlerUpdate       = mustMethod(RoleStatementHandler, "Update")
	StatementHandlerQuery        = mustMethod(RoleStatementHandler, "Query")
	StatementHandlerQueryCursor  = mustMethod(RoleStatementHandler, "QueryCursor")

	ParameterHandlerSetParameters = mustMethod(RoleParameterHandler, "SetParameters")

	ResultSetHandlerHandleResultSets       = mustMethod(RoleResultSetHandler, "HandleResultSets")
	ResultSetHandlerHandleCursorResultSets = mustMethod(RoleResultSetHandler, "HandleCursorResultSets")
	ResultSetHandlerHandleOutputParameters = mustMethod(RoleResultSetHandler, "HandleOutputParameters")
)
