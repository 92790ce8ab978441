package ipc

import (
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Client is a thin, synchronous request/response client for the agent's
// IPC protocol, used by unprivileged callers (cmd/shieldai) in place of
// the out-of-scope GUI.
type Client struct {
	conn  net.Conn
	token string
}

// Dial connects to the agent's UNIX domain socket at path and performs the
// Hello handshake, returning a ready-to-use Client.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 5*time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to agent")
	}
	client := &Client{conn: conn}
	if err := client.hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) hello() error {
	response, err := c.send(Request{Command: CommandHello})
	if err != nil {
		return err
	}
	if !response.Success {
		return errors.Errorf("Hello failed: %s", response.Error)
	}
	var payload HelloPayload
	if err := remarshal(response.Data, &payload); err != nil {
		return errors.Wrap(err, "malformed Hello response")
	}
	c.token = payload.SessionToken
	return nil
}

// Call issues command with payload (marshaled to JSON) and unmarshals a
// successful response's data into result, if result is non-nil.
func (c *Client) Call(command string, payload interface{}, result interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "unable to encode request payload")
		}
		raw = encoded
	}

	response, err := c.send(Request{Command: command, SessionToken: c.token, Payload: raw})
	if err != nil {
		return err
	}
	if !response.Success {
		return errors.New(response.Error)
	}
	if result == nil {
		return nil
	}
	return remarshal(response.Data, result)
}

func (c *Client) send(request Request) (Response, error) {
	encoded, err := json.Marshal(request)
	if err != nil {
		return Response{}, errors.Wrap(err, "unable to encode request")
	}
	if err := WriteFrame(c.conn, encoded); err != nil {
		return Response{}, errors.Wrap(err, "unable to send request")
	}
	body, err := ReadFrame(c.conn)
	if err != nil {
		return Response{}, errors.Wrap(err, "unable to read response")
	}
	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return Response{}, errors.Wrap(err, "malformed response")
	}
	return response, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// remarshal round-trips value through JSON into target, since Response.Data
// decodes into an interface{} (map[string]interface{}) rather than the
// concrete DTO type.
func remarshal(value interface{}, target interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, target)
}
