package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-smtp-connect"
)

type mockSASL struct {
	mock.Mock
}

func (m *mockSASL) Start() (string, []byte, error) {
	args := m.Called()
	ir, _ := args.Get(1).([]byte)
	return args.String(0), ir, args.Error(2)
}

func (m *mockSASL) Next(challenge []byte) ([]byte, error) {
	args := m.Called(challenge)
	resp, _ := args.Get(0).([]byte)
	return resp, args.Error(1)
}

func TestPlainAuth(t *testing.T) {
	c, received := newPipeConn(t, "235 2.7.0 Authentication successful")

	c, resp, err := c.Send(context.Background(), PlainAuth("", "user", "pass"))
	require.NoError(t, err)
	assert.Equal(t, 235, resp.Code)
	assert.NotNil(t, c)
	assert.Equal(t, []string{"AUTH PLAIN AHVzZXIAcGFzcw=="}, <-received)
}

func TestLoginAuth(t *testing.T) {
	c, received := newPipeConn(t, "334 UGFzc3dvcmQ6", "235 2.7.0 Authentication successful")

	_, resp, err := c.Send(context.Background(), LoginAuth("username", "password"))
	require.NoError(t, err)
	assert.Equal(t, 235, resp.Code)
	assert.Equal(t, []string{"AUTH LOGIN dXNlcm5hbWU=", "cGFzc3dvcmQ="}, <-received)
}

func TestAuthRejected(t *testing.T) {
	c, received := newPipeConn(t, "535 5.7.8 Authentication credentials invalid")

	c, _, err := c.Send(context.Background(), PlainAuth("", "user", "wrong"))
	var logicErr *smtp.LogicError
	require.ErrorAs(t, err, &logicErr)
	assert.Equal(t, 535, logicErr.Code)
	assert.Equal(t, smtp.EnhancedCode{5, 7, 8}, logicErr.EnhancedCode)
	assert.NotNil(t, c, "a rejected AUTH leaves the connection usable")
	<-received
}

func TestAuthChallenges(t *testing.T) {
	client := new(mockSASL)
	client.On("Start").Return("XTEST", []byte("init"), nil)
	client.On("Next", []byte("step1")).Return([]byte("resp1"), nil)

	c, received := newPipeConn(t, "334 c3RlcDE=", "235 2.7.0 OK")

	_, _, err := c.Send(context.Background(), &Auth{Client: client})
	require.NoError(t, err)
	assert.Equal(t, []string{"AUTH XTEST aW5pdA==", "cmVzcDE="}, <-received)
	client.AssertExpectations(t)
}

func TestAuthEmptyInitialResponse(t *testing.T) {
	client := new(mockSASL)
	client.On("Start").Return("XTEST", []byte{}, nil)

	c, received := newPipeConn(t, "235 2.7.0 OK")

	_, _, err := c.Send(context.Background(), &Auth{Client: client})
	require.NoError(t, err)
	assert.Equal(t, []string{"AUTH XTEST ="}, <-received)
}

func TestAuthAbort(t *testing.T) {
	mechErr := errors.New("unexpected challenge")
	client := new(mockSASL)
	client.On("Start").Return("XTEST", []byte("init"), nil)
	client.On("Next", []byte("challenge")).Return(nil, mechErr)

	c, received := newPipeConn(t, "334 Y2hhbGxlbmdl", "501 5.7.0 Authentication cancelled")

	c, _, err := c.Send(context.Background(), &Auth{Client: client})
	assert.ErrorIs(t, err, mechErr)
	assert.NotNil(t, c)
	assert.Equal(t, []string{"AUTH XTEST aW5pdA==", "*"}, <-received)
}

func TestAuthStartFailure(t *testing.T) {
	startErr := errors.New("no credentials")
	client := new(mockSASL)
	client.On("Start").Return("XTEST", nil, startErr)

	c, _ := newPipeConn(t)

	c, resp, err := c.Send(context.Background(), &Auth{Client: client})
	assert.ErrorIs(t, err, startErr)
	assert.Nil(t, resp)
	assert.NotNil(t, c)
}
