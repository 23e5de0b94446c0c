// Package mocks holds a gomock double of events.Publisher in mockgen's layout.
// Running go generate in the parent package rewrites this file with mockgen.
package mocks

import (
	context "context"
	reflect "reflect"

	models "github.com/citizenwatch/roadwatch-server/internal/models"
	gomock "github.com/golang/mock/gomock"
)

// MockPublisher is a mock of Publisher interface.
type MockPublisher struct {
	ctrl     *gomock.Controller
	recorder *MockPublisherMockRecorder
}

// MockPublisherMockRecorder is the mock recorder for MockPublisher.
type MockPublisherMockRecorder struct {
	mock *MockPublisher
}

// NewMockPublisher creates a new mock instance.
func NewMockPublisher(ctrl *gomock.Controller) *MockPublisher {
	mock := &MockPublisher{ctrl: ctrl}
	mock.recorder = &MockPublisherMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPublisher) EXPECT() *MockPublisherMockRecorder {
	return m.recorder
}

// Close mocks base method.
func (m *MockPublisher) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockPublisherMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockPublisher)(nil).Close))
}

// PublishStatusChanged mocks base method.
func (m *MockPublisher) PublishStatusChanged(ctx context.Context, change models.StatusChange) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PublishStatusChanged", ctx, change)
	ret0, _ := ret[0].(error)
	return ret0
}

// PublishStatusChanged indicates an expected call of PublishStatusChanged.
func (mr *MockPublisherMockRecorder) PublishStatusChanged(ctx, change interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PublishStatusChanged", reflect.TypeOf((*MockPublisher)(nil).PublishStatusChanged), ctx, change)
}
