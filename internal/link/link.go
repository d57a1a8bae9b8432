package link

import (
	"fmt"
)

// TokenEncrypter turns a node id into a URL-safe callback token
type TokenEncrypter interface {
	Encrypt(nodeID string) (string, error)
}

// Builder builds links into the job platform, the node manager and the
// callback endpoint of this service
type Builder struct {
	jobHost           string
	nodemanHost       string
	innerCallbackHost string
	encrypter         TokenEncrypter
}

// NewBuilder creates a new link builder. innerCallbackHost is expected to
// end with a slash.
func NewBuilder(jobHost, nodemanHost, innerCallbackHost string, encrypter TokenEncrypter) *Builder {
	return &Builder{
		jobHost:           jobHost,
		nodemanHost:       nodemanHost,
		innerCallbackHost: innerCallbackHost,
		encrypter:         encrypter,
	}
}

// JobInstanceURL returns the job platform page of a job instance
func (b *Builder) JobInstanceURL(jobInstanceID int64) string {
	return fmt.Sprintf("%s/api_execute/%d", b.jobHost, jobInstanceID)
}

// NodeCallbackURL returns the URL the job platform calls back when the job of
// nodeID finishes
func (b *Builder) NodeCallbackURL(nodeID string) (string, error) {
	token, err := b.encrypter.Encrypt(nodeID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%staskflow/api/nodes/callback/%s/", b.innerCallbackHost, token), nil
}

// NodemanJobURL returns the node manager log page of a host in a task
func (b *Builder) NodemanJobURL(instanceID string, hostID int64) string {
	return fmt.Sprintf("%s/#/task-history/%s/log/host|instance|host|%d", b.nodemanHost, instanceID, hostID)
}
