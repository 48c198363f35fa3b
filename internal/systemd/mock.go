package systemd

// MockManager is a test helper implementing ServiceManager.
type MockManager struct {
	StartFunc   func(unitName string) error
	StopFunc    func(unitName string) error
	RestartFunc func(unitName string) error
	StatusFunc  func(unitName string) (string, error)

	// Calls records every invocation as "<action> <unit>".
	Calls []string
}

func (m *MockManager) Start(unitName string) error {
	m.Calls = append(m.Calls, "start "+unitName)
	if m.StartFunc != nil {
		return m.StartFunc(unitName)
	}
	return nil
}

func (m *MockManager) Stop(unitName string) error {
	m.Calls = append(m.Calls, "stop "+unitName)
	if m.StopFunc != nil {
		return m.StopFunc(unitName)
	}
	return nil
}

func (m *MockManager) Restart(unitName string) error {
	m.Calls = append(m.Calls, "restart "+unitName)
	if m.RestartFunc != nil {
		return m.RestartFunc(unitName)
	}
	return nil
}

func (m *MockManager) Status(unitName string) (string, error) {
	m.Calls = append(m.Calls, "status "+unitName)
	if m.StatusFunc != nil {
		return m.StatusFunc(unitName)
	}
	return "", nil
}
