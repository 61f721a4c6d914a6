package probe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github/chapool/go-ledger/cmd/probe"
)

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version string
		min     string
		ok      bool
	}{
		{"1.10.2", "1.9.0", true},
		{"1.10.2", "1.10.2", true},
		{"1.9.13", "1.10.0", false},
		{"1.10.2", "", true},
		{"", "1.9.0", false},
		{"1.10.2", "latest", false},
		{"2.0.0", "v1.9.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.version+"_"+tt.min, func(t *testing.T) {
			err := probe.CheckVersion(tt.version, tt.min)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
