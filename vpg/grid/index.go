package grid

import (
	"github.com/armon/go-radix"
)

// bucketIndex maps bucket keys to buckets in O(k) of the key length and
// answers prefix queries such as every month of a year.
type bucketIndex struct {
	tree *radix.Tree
}

func newBucketIndex() *bucketIndex {
	return &bucketIndex{tree: radix.New()}
}

// insert adds the bucket and reports false if the key was already present.
func (idx *bucketIndex) insert(b *TimeBucket) bool {
	_, updated := idx.tree.Insert(b.Key, b)
	return !updated
}

func (idx *bucketIndex) lookup(key string) (*TimeBucket, bool) {
	v, ok := idx.tree.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*TimeBucket), true
}

func (idx *bucketIndex) remove(key string) bool {
	_, ok := idx.tree.Delete(key)
	return ok
}

// withPrefix returns the keys sharing prefix in lexical order.
func (idx *bucketIndex) withPrefix(prefix string) []string {
	var keys []string
	idx.tree.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		keys = append(keys, key)
		return false
	})
	return keys
}

func (idx *bucketIndex) len() int {
	return idx.tree.Len()
}
