package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/shellbox/internal/agent"
	"github.com/p-arndt/shellbox/internal/sandbox"
)

type MockSandboxService struct {
	mock.Mock
}

func (m *MockSandboxService) ExecuteCommand(ctx context.Context, command string, timeoutSeconds int) sandbox.Result {
	args := m.Called(ctx, command, timeoutSeconds)
	return args.Get(0).(sandbox.Result)
}

func (m *MockSandboxService) Start() bool {
	return m.Called().Bool(0)
}

func (m *MockSandboxService) Stop() bool {
	return m.Called().Bool(0)
}

func (m *MockSandboxService) Info() sandbox.Info {
	return m.Called().Get(0).(sandbox.Info)
}

func (m *MockSandboxService) CreateFile(path, content string) sandbox.FileResult {
	return m.Called(path, content).Get(0).(sandbox.FileResult)
}

func (m *MockSandboxService) ReadFile(path string) sandbox.ReadResult {
	return m.Called(path).Get(0).(sandbox.ReadResult)
}

func (m *MockSandboxService) ListFiles(dir string) sandbox.ListResult {
	return m.Called(dir).Get(0).(sandbox.ListResult)
}

type MockTaskRunner struct {
	mock.Mock
}

func (m *MockTaskRunner) RunTask(ctx context.Context, task, additionalInfo string) agent.TaskResult {
	return m.Called(ctx, task, additionalInfo).Get(0).(agent.TaskResult)
}

func (m *MockTaskRunner) Stop() agent.StopResult {
	return m.Called().Get(0).(agent.StopResult)
}

func (m *MockTaskRunner) Status() agent.Snapshot {
	return m.Called().Get(0).(agent.Snapshot)
}
