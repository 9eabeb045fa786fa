package dispatcher

import "strings"

// Operation is one of the supported file-management intents.
type Operation int

const (
	OpUpload Operation = iota + 1
	OpDownload
	OpDelete
	OpRename
	OpMkdir
	OpList
)

var operationNames = map[Operation]string{
	OpUpload:   "upload",
	OpDownload: "download",
	OpDelete:   "delete",
	OpRename:   "rename",
	OpMkdir:    "mkdir",
	OpList:     "list",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// Operations lists every supported operation in declaration order.
func Operations() []Operation {
	return []Operation{OpUpload, OpDownload, OpDelete, OpRename, OpMkdir, OpList}
}

// ParseOperation accepts an operation name in any case, surrounding
// whitespace ignored.
func ParseOperation(s string) (Operation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for op, n := range operationNames {
		if n == name {
			return op, nil
		}
	}
	return 0, invalid("unsupported operation %q", s)
}
