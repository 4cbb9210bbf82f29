package locks

import "github.com/opsforge/coordd/pkg/domain"

// conflictMatrix lists, per operation, the operations it cannot coexist
// with on the same resource. The raw table is directional; Conflicts
// symmetrizes it, so a pair conflicts if either direction says so.
var conflictMatrix = map[domain.ResourceOperation][]domain.ResourceOperation{
	domain.OperationWrite:        {domain.OperationWrite, domain.OperationDelete},
	domain.OperationDelete:       {domain.OperationRead, domain.OperationWrite, domain.OperationDelete},
	domain.OperationRead:         {domain.OperationDelete},
	domain.OperationMerge:        {domain.OperationWrite, domain.OperationDelete, domain.OperationMerge},
	domain.OperationBranchCreate: {domain.OperationDelete},
}

func conflictsOneWay(a, b domain.ResourceOperation) bool {
	for _, op := range conflictMatrix[a] {
		if op == b {
			return true
		}
	}
	return false
}

// Conflicts reports whether two operations on the same resource are
// mutually exclusive.
func Conflicts(a, b domain.ResourceOperation) bool {
	return conflictsOneWay(a, b) || conflictsOneWay(b, a)
}
