package easycontrols

import (
	"fmt"
	"sync"
)

func CreateTestVariableClient(values map[string]string) VariableClient {
	if values == nil {
		values = map[string]string{}
	}
	return &TestVariableClient{values: values}
}

// TestVariableClient keeps variables in memory instead of talking to a device.
type TestVariableClient struct {
	mu     sync.Mutex
	values map[string]string
	Writes []Frame
}

func (c *TestVariableClient) Open() error {
	return nil
}

func (c *TestVariableClient) Close() error {
	return nil
}

func (c *TestVariableClient) ReadVariable(variableID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[variableID]
	if !ok {
		return "", fmt.Errorf("variable %s not set", variableID)
	}
	return v, nil
}

func (c *TestVariableClient) WriteVariable(variableID string, value string) error {
	if !IsVariableID(variableID) {
		return fmt.Errorf("%w: bad variable id %q", ErrMalformedFrame, variableID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[variableID] = value
	c.Writes = append(c.Writes, WriteFrame(variableID, value))
	return nil
}
