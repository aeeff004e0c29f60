package simpleauthority_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

func TestRenameRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     simpleauthority.RenameRequest
		wantErr string
	}{
		{name: "valid", req: simpleauthority.RenameRequest{AuthorityID: "auth-1", Value: "Jane Smith"}},
		{name: "unicode value", req: simpleauthority.RenameRequest{AuthorityID: "auth-1", Value: "Zoë Ñúñez"}},
		{name: "missing id", req: simpleauthority.RenameRequest{Value: "Jane"}, wantErr: "authorityid"},
		{name: "missing value", req: simpleauthority.RenameRequest{AuthorityID: "auth-1"}, wantErr: "required"},
		{name: "control characters", req: simpleauthority.RenameRequest{AuthorityID: "auth-1", Value: "Jane\x00Smith"}, wantErr: "printable"},
		{name: "value too long", req: simpleauthority.RenameRequest{AuthorityID: "auth-1", Value: strings.Repeat("a", simpleauthority.MaxValueBytes+1)}, wantErr: "maxbytes"},
		{name: "id too long", req: simpleauthority.RenameRequest{AuthorityID: strings.Repeat("a", 256), Value: "Jane"}, wantErr: "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRenameRequestNormalize(t *testing.T) {
	req := simpleauthority.RenameRequest{AuthorityID: "  auth-1\t", Value: "\n Jane Smith  "}.Normalize()
	assert.Equal(t, "auth-1", req.AuthorityID)
	assert.Equal(t, "Jane Smith", req.Value)
}
