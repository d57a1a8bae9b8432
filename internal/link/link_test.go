package link

import (
	"NYCU-SDC/job-dispatch-service/internal/callback"
	"errors"
	"strings"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEncrypter struct{}

func (failingEncrypter) Encrypt(string) (string, error) {
	return "", errors.New("no key")
}

func TestJobInstanceURL(t *testing.T) {
	b := NewBuilder("https://job.example.com", "", "", nil)
	assert.Equal(t, "https://job.example.com/api_execute/12345", b.JobInstanceURL(12345))
}

func TestNodemanJobURL(t *testing.T) {
	b := NewBuilder("", "https://nodeman.example.com", "", nil)
	assert.Equal(t,
		"https://nodeman.example.com/#/task-history/88/log/host|instance|host|1024",
		b.NodemanJobURL("88", 1024),
	)
}

func TestNodeCallbackURL(t *testing.T) {
	var key fernet.Key
	require.NoError(t, key.Generate())
	codec, err := callback.NewCodec(key.Encode())
	require.NoError(t, err)

	b := NewBuilder("", "", "http://dispatch.internal/", codec)
	got, err := b.NodeCallbackURL("job-abc")
	require.NoError(t, err)

	prefix := "http://dispatch.internal/taskflow/api/nodes/callback/"
	require.True(t, strings.HasPrefix(got, prefix))
	require.True(t, strings.HasSuffix(got, "/"))

	token := strings.TrimSuffix(strings.TrimPrefix(got, prefix), "/")
	assert.NotContains(t, token, "/")
	nodeID, err := codec.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "job-abc", nodeID)
}

func TestNodeCallbackURL_EncryptError(t *testing.T) {
	b := NewBuilder("", "", "http://dispatch.internal/", failingEncrypter{})
	_, err := b.NodeCallbackURL("job-abc")
	assert.Error(t, err)
}
