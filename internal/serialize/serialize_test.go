package serialize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripvault/internal/common"
	"tripvault/internal/models"
)

func TestClean_TrimsAndNils(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"plain", "hello", strptr("hello")},
		{"padded", "  hello ", strptr("hello")},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"date passthrough", "1990-05-01", strptr("1990-05-01")},
		{"datetime passthrough", "2025-01-02T10:00:00.000Z", strptr("2025-01-02T10:00:00.000Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestCleanPtr_Nil(t *testing.T) {
	assert.Nil(t, CleanPtr(nil))
	assert.Nil(t, CleanPtr(strptr("  ")))
}

func TestNewID_Unique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestNow_LexicographicOrder(t *testing.T) {
	a := Now()
	b := Now()
	assert.LessOrEqual(t, a, b)
	assert.Len(t, a, len("2006-01-02T15:04:05.000Z"))
}

func TestValidate_MissingOwner(t *testing.T) {
	err := Validate(&models.IdentityDocument{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	err = Validate(&models.IdentityDocument{OwnerID: "u1"})
	assert.NoError(t, err)
}

func TestDecodeWithAliases_PhotoKeys(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"canonical", `{"ownerId":"u1","photoRef":"a.jpg"}`, "a.jpg"},
		{"photoUri", `{"ownerId":"u1","photoUri":"b.jpg"}`, "b.jpg"},
		{"photoPath", `{"ownerId":"u1","photoPath":"c.jpg"}`, "c.jpg"},
		{"imageUri", `{"ownerId":"u1","imageUri":"d.jpg"}`, "d.jpg"},
		{"canonical wins", `{"ownerId":"u1","photoRef":"a.jpg","imageUri":"d.jpg"}`, "a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc models.IdentityDocument
			require.NoError(t, DecodeWithAliases([]byte(tt.json), &doc))
			require.NotNil(t, doc.PhotoRef)
			assert.Equal(t, tt.want, *doc.PhotoRef)
		})
	}
}

func TestDecodeWithAliases_NoPhoto(t *testing.T) {
	var doc models.IdentityDocument
	require.NoError(t, DecodeWithAliases([]byte(`{"ownerId":"u1"}`), &doc))
	assert.Nil(t, doc.PhotoRef)
}

func TestStringSliceRoundTrip(t *testing.T) {
	enc, err := MarshalStringSlice([]string{"passport", "visa"})
	require.NoError(t, err)
	out, err := UnmarshalStringSlice(enc)
	require.NoError(t, err)
	assert.Equal(t, []string{"passport", "visa"}, out)

	enc, err = MarshalStringSlice(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", enc)
	out, err = UnmarshalStringSlice(enc)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func strptr(s string) *string { return &s }
