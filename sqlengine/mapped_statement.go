package sqlengine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// StatementKind classifies a MappedStatement.
type StatementKind int

const (
	KindUnknown StatementKind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

// String returns the lower-case name of the kind.
func (k StatementKind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// IsWrite reports whether statements of this kind modify rows.
func (k StatementKind) IsWrite() bool {
	return k == KindInsert || k == KindUpdate || k == KindDelete
}

// ParseStatementKind maps a kind name back to its StatementKind.
func ParseStatementKind(name string) (StatementKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "select":
		return KindSelect, nil
	case "insert":
		return KindInsert, nil
	case "update":
		return KindUpdate, nil
	case "delete":
		return KindDelete, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrInvalidStatementKind, name)
	}
}

// NoLimit is the RowBounds limit of an unbounded read.
const NoLimit = math.MaxInt

// RowBounds is the result window of a read: rows before Offset are skipped,
// at most Limit rows are returned.
type RowBounds struct {
	Offset int
	Limit  int
}

// NoRowBounds reads the full result.
var NoRowBounds = RowBounds{Offset: 0, Limit: NoLimit}

// NewRowBounds creates a result window, negative values are clamped to zero.
func NewRowBounds(offset, limit int) RowBounds {
	return RowBounds{Offset: max(offset, 0), Limit: max(limit, 0)}
}

// IsUnbounded reports whether the window covers the full result.
func (b RowBounds) IsUnbounded() bool {
	return b.Offset == 0 && b.Limit == NoLimit
}

// MappedStatement is the immutable description of one configured statement.
// SQL uses positional placeholders ($1, $2, ...) and ParameterMappings names the
// parameter property bound to each of them, in order.
type MappedStatement struct {
	ID                string
	Kind              StatementKind
	SQL               string
	ParameterMappings []string
	ResultType        reflect.Type
	Timeout           time.Duration
	KeyGenerator      KeyGenerator
	KeyProperties     []string
	KeyColumns        []string
	KeyOptional       bool
	FlushCache        bool
	UseCache          bool
}

// BoundSQL is the SQL of a MappedStatement together with the parameter object it is executed with.
type BoundSQL struct {
	SQL               string
	ParameterMappings []string
	Parameter         any
}

// StatementOption defines a functional option for configuring a MappedStatement.
type StatementOption func(*MappedStatement) error

// NewMappedStatement creates a MappedStatement from an SQL template.
// Placeholders are written as #{property} and bound from the parameter object at execution time.
func NewMappedStatement(id string, kind StatementKind, sqlTemplate string, options ...StatementOption) (*MappedStatement, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyStatementID
	}

	if strings.TrimSpace(sqlTemplate) == "" {
		return nil, errors.Join(ErrEmptyStatementSQL, fmt.Errorf("statement %q", id))
	}

	if kind == KindUnknown {
		return nil, errors.Join(ErrInvalidStatementKind, fmt.Errorf("statement %q", id))
	}

	sql, mappings, err := parseSQLTemplate(sqlTemplate)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("statement %q", id))
	}

	ms := &MappedStatement{
		ID:                id,
		Kind:              kind,
		SQL:               sql,
		ParameterMappings: mappings,
		UseCache:          kind == KindSelect,
		FlushCache:        kind != KindSelect,
	}

	for _, option := range options {
		if err := option(ms); err != nil {
			return nil, err
		}
	}

	return ms, nil
}

// WithResultType sets the type each result row is mapped to.
// Struct types are mapped by column name, other types take the first column, nil maps rows to map[string]any.
func WithResultType(resultType reflect.Type) StatementOption {
	return func(ms *MappedStatement) error {
		ms.ResultType = resultType
		return nil
	}
}

// WithResultTypeOf is the generic shorthand of WithResultType.
func WithResultTypeOf[T any]() StatementOption {
	return WithResultType(reflect.TypeOf((*T)(nil)).Elem())
}

// WithTimeout sets the statement timeout.
func WithTimeout(timeout time.Duration) StatementOption {
	return func(ms *MappedStatement) error {
		if timeout < 0 {
			return fmt.Errorf("negative timeout for statement %q", ms.ID)
		}

		ms.Timeout = timeout

		return nil
	}
}

// WithKeyGenerator attaches a key generator and the parameter properties it populates.
func WithKeyGenerator(generator KeyGenerator, keyProperties ...string) StatementOption {
	return func(ms *MappedStatement) error {
		if !ms.Kind.IsWrite() {
			return errors.Join(ErrInvalidStatementKind, fmt.Errorf("key generator on %s statement %q", ms.Kind, ms.ID))
		}

		if generator != nil && generator != NoKeyGenerator {
			if len(keyProperties) == 0 {
				return fmt.Errorf("%w: statement %q", ErrMissingKeyProperties, ms.ID)
			}

			for _, property := range keyProperties {
				if strings.TrimSpace(property) == "" {
					return fmt.Errorf("%w: empty key property on statement %q", ErrMissingKeyProperties, ms.ID)
				}
			}
		}

		ms.KeyGenerator = generator
		ms.KeyProperties = keyProperties

		return nil
	}
}

// WithKeyColumns sets the columns generated keys are read from. They default to the key properties.
func WithKeyColumns(columns ...string) StatementOption {
	return func(ms *MappedStatement) error {
		ms.KeyColumns = columns
		return nil
	}
}

// WithKeyOptional lets a write succeed when key retrieval fails, the failure is logged instead.
func WithKeyOptional() StatementOption {
	return func(ms *MappedStatement) error {
		ms.KeyOptional = true
		return nil
	}
}

// WithFlushCache controls whether executing the statement clears the local cache first.
func WithFlushCache(flush bool) StatementOption {
	return func(ms *MappedStatement) error {
		ms.FlushCache = flush
		return nil
	}
}

// WithUseCache controls whether read results are kept in the local cache.
func WithUseCache(use bool) StatementOption {
	return func(ms *MappedStatement) error {
		ms.UseCache = use
		return nil
	}
}

// BoundSQL binds the statement to a parameter object.
func (ms *MappedStatement) BoundSQL(parameter any) BoundSQL {
	return BoundSQL{
		SQL:               ms.SQL,
		ParameterMappings: ms.ParameterMappings,
		Parameter:         parameter,
	}
}

// KeyGeneratorOrNone returns the configured key generator or a no-op one.
func (ms *MappedStatement) KeyGeneratorOrNone() KeyGenerator {
	if ms.KeyGenerator == nil {
		return NoKeyGenerator
	}

	return ms.KeyGenerator
}

// EffectiveKeyColumns returns the key columns, falling back to the key properties.
func (ms *MappedStatement) EffectiveKeyColumns() []string {
	if len(ms.KeyColumns) > 0 {
		return ms.KeyColumns
	}

	return ms.KeyProperties
}

// parseSQLTemplate replaces #{property} placeholders with $n and returns the property names in order.
func parseSQLTemplate(template string) (string, []string, error) {
	var sql strings.Builder
	mappings := make([]string, 0)

	rest := template
	for {
		start := strings.Index(rest, "#{")
		if start < 0 {
			sql.WriteString(rest)
			break
		}

		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", nil, fmt.Errorf("%w: missing closing brace in %q", ErrMalformedPlaceholder, template)
		}

		property := strings.TrimSpace(rest[start+2 : start+end])
		if property == "" {
			return "", nil, fmt.Errorf("%w: empty property in %q", ErrMalformedPlaceholder, template)
		}

		mappings = append(mappings, property)
		sql.WriteString(rest[:start])
		sql.WriteString("$" + strconv.Itoa(len(mappings)))
		rest = rest[start+end+1:]
	}

	return sql.String(), mappings, nil
}
