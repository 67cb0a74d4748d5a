package server

import (
	"io"

	"github.com/hashicorp/go-multierror"
)

// CloseAll closes every closer in order, even after a failure, and reports
// all close errors together.
func CloseAll(closers ...io.Closer) error {
	var result *multierror.Error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
