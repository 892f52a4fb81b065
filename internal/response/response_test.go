package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tranquility/pkg/domain-errors"
)

func TestResponse_Defaults(t *testing.T) {
	r := New()
	assert.Equal(t, http.StatusOK, r.Code())
	assert.Equal(t, 0, r.ItemCount())
	assert.Equal(t, 0, r.MessageCount())
	assert.False(t, r.HasErrors())
	assert.Equal(t, http.StatusOK, r.Meta().Code)
}

func TestResponse_SetCode(t *testing.T) {
	r := New()
	require.NoError(t, r.SetCode(http.StatusConflict))
	assert.Equal(t, http.StatusConflict, r.Meta().Code)

	err := r.SetCode(http.StatusTeapot)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	assert.Equal(t, http.StatusConflict, r.Code())
}

func TestResponse_Messages(t *testing.T) {
	r := New()
	r.AddMessage(MsgNoRecords, LevelWarning, "")
	assert.False(t, r.HasErrors())

	r.AddMessage(MsgMandatoryFieldMissing, LevelError, "firstName")
	assert.True(t, r.HasErrors())
	assert.True(t, r.ContainsMessageCode(MsgMandatoryFieldMissing))
	assert.False(t, r.ContainsMessageCode(MsgPersonCreated))
	assert.Equal(t, 2, r.MessageCount())

	msg := r.Messages()[1]
	assert.Equal(t, "firstName", msg.FieldID)
	assert.Equal(t, "message_10002_mandatory_service_input_field_missing", msg.Text)

	r.ClearMessages()
	assert.Equal(t, 0, r.MessageCount())
	assert.False(t, r.HasErrors())
}

func TestResponse_ContentCounts(t *testing.T) {
	r := New()
	r.SetContent([]Record{{"id": int64(1)}, {"id": int64(2)}})
	assert.Equal(t, 2, r.ItemCount())

	r.SetGroups(map[string][]Record{
		"physical":   {{"id": int64(3)}},
		"electronic": {{"id": int64(4)}, {"id": int64(5)}},
	})
	assert.Equal(t, 3, r.ItemCount())
	assert.Nil(t, r.Content())

	r.AddTransactionID(42)
	doc := r.Document()
	assert.Equal(t, int64(42), doc.Meta.TransactionID)
	assert.Equal(t, 3, doc.Meta.Count)
	assert.NotNil(t, doc.Messages)
}
