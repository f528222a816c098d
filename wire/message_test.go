package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse([]byte(`{"type":"update_project","sessionId":"s1","clientId":"bob","project":{"name":"x","lastUpdatedAt":1700000000123}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeUpdateProject, m.Type)
	assert.Equal(t, "s1", m.SessionID)
	assert.Equal(t, "bob", m.ClientID)

	ts, ok := ProjectStamp(m.Project)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000123), ts)

	for _, bad := range []string{`{"type":`, `[1,2]`, `"join"`, ``} {
		_, err := Parse([]byte(bad))
		assert.True(t, errors.Is(err, ErrMalformed), "input %q", bad)
	}
}

func TestProjectStamp(t *testing.T) {
	cases := []struct {
		raw    string
		wantTS int64
		wantOK bool
	}{
		{``, 0, false},
		{`null`, 0, false},
		{`{}`, 0, false},
		{`[]`, 0, false},
		{`"p"`, 0, false},
		{`{"name":"x"}`, 0, true},
		{`{"lastUpdatedAt":"soon"}`, 0, true},
		{` {"lastUpdatedAt": 42} `, 42, true},
	}
	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			ts, ok := ProjectStamp(json.RawMessage(c.raw))
			assert.Equal(t, c.wantOK, ok)
			assert.Equal(t, c.wantTS, ts)
		})
	}
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	b, err := Encode(Join("s1", "alice"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join","sessionId":"s1","clientId":"alice"}`, string(b))

	b, err = Encode(Snapshot("s1", "", json.RawMessage(`{"name":"x"}`)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"project_snapshot","sessionId":"s1","project":{"name":"x"}}`, string(b))

	b, err = Encode(Participants("s1", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"participants","sessionId":"s1"}`, string(b), "an empty list is omitted")

	b, err = Encode(Error("sessionId required"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"sessionId required"}`, string(b))
}
