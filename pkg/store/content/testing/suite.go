// Package testing provides a conformance suite for blob content stores.
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittocmis/pkg/store/content"
)

// StoreTestSuite is a test suite for content.Store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across memory, filesystem and S3 backends.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) content.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("Statistics", suite.RunStatsTests)
	t.Run("GarbageCollection", suite.RunGCTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
