package bulk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	dErrors "ecotrace/pkg/domainerrors"
)

func TestItemValidate(t *testing.T) {
	assetID := uuid.NewString()

	cases := []struct {
		name     string
		kind     Kind
		item     Item
		wantCode dErrors.Code
	}{
		{"register valid", KindRegister, Item{SerialNumber: "SN-1", Model: "T14"}, ""},
		{"register missing serial", KindRegister, Item{Model: "T14"}, dErrors.CodeValidation},
		{"register missing model", KindRegister, Item{SerialNumber: "SN-1"}, dErrors.CodeValidation},
		{"sanitize valid", KindSanitize, Item{AssetID: assetID, SanitizationHash: testHash}, ""},
		{"sanitize missing asset id", KindSanitize, Item{SanitizationHash: testHash}, dErrors.CodeValidation},
		{"sanitize malformed asset id", KindSanitize, Item{AssetID: "nope", SanitizationHash: testHash}, dErrors.CodeValidation},
		{"sanitize bad hash", KindSanitize, Item{AssetID: assetID, SanitizationHash: "bad"}, dErrors.CodeValidation},
		{"recycle valid", KindRecycle, Item{AssetID: assetID}, ""},
		{"recycle missing asset id", KindRecycle, Item{}, dErrors.CodeValidation},
		{"transfer valid", KindTransfer, Item{AssetID: assetID, NewOwner: "buyer"}, ""},
		{"transfer missing owner", KindTransfer, Item{AssetID: assetID}, dErrors.CodeValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err, duplicate := tc.item.validate(tc.kind, map[string]bool{})
			assert.False(t, duplicate)
			if tc.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, tc.wantCode), "got %v", err)
		})
	}

	t.Run("register duplicate within batch", func(t *testing.T) {
		seen := map[string]bool{}
		first := Item{SerialNumber: "SN-1", Model: "T14"}
		err, duplicate := first.validate(KindRegister, seen)
		assert.NoError(t, err)
		assert.False(t, duplicate)

		second := Item{SerialNumber: " sn-1 ", Model: "T14"}
		err, duplicate = second.validate(KindRegister, seen)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateSerial))
		assert.True(t, duplicate)
	})
}

func TestTemplates(t *testing.T) {
	all := Templates()
	assert.Len(t, all, 4)

	tmpl, err := TemplateFor(KindSanitize)
	assert.NoError(t, err)
	names := make([]string, len(tmpl.Fields))
	for i, f := range tmpl.Fields {
		names[i] = f.Name
	}
	assert.Contains(t, names, "asset_id")
	assert.Contains(t, names, "sanitization_hash")

	_, err = TemplateFor(Kind("decommission"))
	assert.Error(t, err)
}
