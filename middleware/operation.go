package middleware

import (
	"fmt"
	"strings"
)

// Operation identifies the kind of data-access call.
type Operation string

const (
	OpCreate     Operation = "create"
	OpFindOne    Operation = "findOne"
	OpFindByID   Operation = "findById"
	OpFindMany   Operation = "findMany"
	OpCount      Operation = "count"
	OpAggregate  Operation = "aggregate"
	OpUpdate     Operation = "update"
	OpUpdateByID Operation = "updateById"
	OpUpdateMany Operation = "updateMany"
	OpDelete     Operation = "delete"
	OpDeleteByID Operation = "deleteById"
	OpDeleteMany Operation = "deleteMany"
	OpSoftDelete Operation = "softDelete"
)

var allOperations = []Operation{
	OpCreate, OpFindOne, OpFindByID, OpFindMany, OpCount, OpAggregate,
	OpUpdate, OpUpdateByID, OpUpdateMany,
	OpDelete, OpDeleteByID, OpDeleteMany, OpSoftDelete,
}

// ReadOperations are the operations that never modify stored documents.
var ReadOperations = []Operation{OpFindOne, OpFindByID, OpFindMany, OpAggregate, OpCount}

// AllOperations returns every operation in declaration order.
func AllOperations() []Operation {
	out := make([]Operation, len(allOperations))
	copy(out, allOperations)
	return out
}

// WriteOperations returns the complement of ReadOperations.
func WriteOperations() []Operation {
	out := make([]Operation, 0, len(allOperations)-len(ReadOperations))
	for _, op := range allOperations {
		if op.IsWrite() {
			out = append(out, op)
		}
	}
	return out
}

// IsRead reports whether the operation is a read.
func (o Operation) IsRead() bool {
	switch o {
	case OpFindOne, OpFindByID, OpFindMany, OpAggregate, OpCount:
		return true
	}
	return false
}

// IsWrite reports whether the operation is a write.
func (o Operation) IsWrite() bool {
	return o.Valid() && !o.IsRead()
}

// Valid reports whether the operation belongs to the enumeration.
func (o Operation) Valid() bool {
	for _, op := range allOperations {
		if op == o {
			return true
		}
	}
	return false
}

// ParseOperation converts a name into an Operation. Matching is case-insensitive.
func ParseOperation(name string) (Operation, error) {
	for _, op := range allOperations {
		if strings.EqualFold(string(op), name) {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", name)
}

// ParseOperations converts a list of names, failing on the first unknown one.
func ParseOperations(names []string) ([]Operation, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ops := make([]Operation, 0, len(names))
	for _, name := range names {
		op, err := ParseOperation(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// operationSet is a lookup table built once per middleware construction.
type operationSet map[Operation]struct{}

func newOperationSet(ops []Operation) operationSet {
	set := make(operationSet, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

func (s operationSet) has(op Operation) bool {
	_, ok := s[op]
	return ok
}
