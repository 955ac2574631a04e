package gstorage

import (
	"context"
	"testing"

	"github.com/Daskott/healthdesk/shared"
	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		fileName string
		want     string
	}{
		{"no prefix", "", "healthdesk.db", "healthdesk.db"},
		{"prefix", "prod", "healthdesk.db", "prod/healthdesk.db"},
		{"nested prefix", "backups/prod", "healthdesk.db", "backups/prod/healthdesk.db"},
		{"slashes trimmed", "/prod/", "healthdesk.db", "prod/healthdesk.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.prefix, tt.fileName))
		})
	}
}

func TestNewGStorageRequiresBucket(t *testing.T) {
	_, err := NewGStorage(context.Background(), shared.GoogleConfig{})
	assert.Error(t, err)
}
