package id

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// ErrNotInitialized is returned by NewChecked before Init has succeeded.
var ErrNotInitialized = errors.New("id generator not initialized")

// Init sets up the generator for this process. nodeID must be unique per
// running instance (0-1023). Later calls are no-ops.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a time-ordered unique id. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

// NewChecked is New for callers that may run before Init.
func NewChecked() (int64, error) {
	if node == nil {
		return 0, ErrNotInitialized
	}
	return New(), nil
}

// Time returns the creation time encoded in an id.
func Time(id int64) time.Time {
	return time.UnixMilli(snowflake.ParseInt64(id).Time()).UTC()
}
