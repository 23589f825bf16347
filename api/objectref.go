package api

import (
	"strings"
)

//ObjectRef locates a collection ({namespace, collection}) or a document ({namespace, collection, id})
type ObjectRef []string

func (c ObjectRef) String() string {
	return strings.Join(c, "/")
}

func (o ObjectRef) IsDocument() bool {
	return len(o) == 3
}

func (o ObjectRef) Namespace() string {
	return o[0]
}

func (o ObjectRef) ID() string {
	return o[len(o)-1]
}

func (d ObjectRef) Collection() ObjectRef {
	return ObjectRef(d[:2])
}
