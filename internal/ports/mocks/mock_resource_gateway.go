package mocks

import (
	context "context"

	domain "github.com/bnema/lfg-coordinator/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockResourceGateway is a mock type for the ResourceGateway type
type MockResourceGateway struct {
	mock.Mock
}

type MockResourceGateway_Expecter struct {
	mock *mock.Mock
}

func (_m *MockResourceGateway) EXPECT() *MockResourceGateway_Expecter {
	return &MockResourceGateway_Expecter{mock: &_m.Mock}
}

// CreateSessionResources provides a mock function with given fields: ctx, session
func (_m *MockResourceGateway) CreateSessionResources(ctx context.Context, session domain.Session) (domain.Resources, error) {
	ret := _m.Called(ctx, session)

	if len(ret) == 0 {
		panic("no return value specified for CreateSessionResources")
	}

	if rf, ok := ret.Get(0).(func(context.Context, domain.Session) (domain.Resources, error)); ok {
		return rf(ctx, session)
	}

	return ret.Get(0).(domain.Resources), ret.Error(1)
}

type MockResourceGateway_CreateSessionResources_Call struct {
	*mock.Call
}

func (_e *MockResourceGateway_Expecter) CreateSessionResources(ctx interface{}, session interface{}) *MockResourceGateway_CreateSessionResources_Call {
	return &MockResourceGateway_CreateSessionResources_Call{Call: _e.mock.On("CreateSessionResources", ctx, session)}
}

func (_c *MockResourceGateway_CreateSessionResources_Call) Return(_a0 domain.Resources, _a1 error) *MockResourceGateway_CreateSessionResources_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// TeardownResources provides a mock function with given fields: ctx, resources
func (_m *MockResourceGateway) TeardownResources(ctx context.Context, resources domain.Resources) error {
	ret := _m.Called(ctx, resources)

	if len(ret) == 0 {
		panic("no return value specified for TeardownResources")
	}

	return ret.Error(0)
}

type MockResourceGateway_TeardownResources_Call struct {
	*mock.Call
}

func (_e *MockResourceGateway_Expecter) TeardownResources(ctx interface{}, resources interface{}) *MockResourceGateway_TeardownResources_Call {
	return &MockResourceGateway_TeardownResources_Call{Call: _e.mock.On("TeardownResources", ctx, resources)}
}

func (_c *MockResourceGateway_TeardownResources_Call) Return(_a0 error) *MockResourceGateway_TeardownResources_Call {
	_c.Call.Return(_a0)
	return _c
}

// UpdateDisplay provides a mock function with given fields: ctx, snapshot
func (_m *MockResourceGateway) UpdateDisplay(ctx context.Context, snapshot domain.SessionSnapshot) error {
	ret := _m.Called(ctx, snapshot)

	if len(ret) == 0 {
		panic("no return value specified for UpdateDisplay")
	}

	return ret.Error(0)
}

type MockResourceGateway_UpdateDisplay_Call struct {
	*mock.Call
}

func (_e *MockResourceGateway_Expecter) UpdateDisplay(ctx interface{}, snapshot interface{}) *MockResourceGateway_UpdateDisplay_Call {
	return &MockResourceGateway_UpdateDisplay_Call{Call: _e.mock.On("UpdateDisplay", ctx, snapshot)}
}

func (_c *MockResourceGateway_UpdateDisplay_Call) Return(_a0 error) *MockResourceGateway_UpdateDisplay_Call {
	_c.Call.Return(_a0)
	return _c
}

// SendAnnouncement provides a mock function with given fields: ctx, roomID, snapshot
func (_m *MockResourceGateway) SendAnnouncement(ctx context.Context, roomID string, snapshot domain.SessionSnapshot) error {
	ret := _m.Called(ctx, roomID, snapshot)

	if len(ret) == 0 {
		panic("no return value specified for SendAnnouncement")
	}

	return ret.Error(0)
}

type MockResourceGateway_SendAnnouncement_Call struct {
	*mock.Call
}

func (_e *MockResourceGateway_Expecter) SendAnnouncement(ctx interface{}, roomID interface{}, snapshot interface{}) *MockResourceGateway_SendAnnouncement_Call {
	return &MockResourceGateway_SendAnnouncement_Call{Call: _e.mock.On("SendAnnouncement", ctx, roomID, snapshot)}
}

func (_c *MockResourceGateway_SendAnnouncement_Call) Return(_a0 error) *MockResourceGateway_SendAnnouncement_Call {
	_c.Call.Return(_a0)
	return _c
}

// RemoveMember provides a mock function with given fields: ctx, resources, member, mode
func (_m *MockResourceGateway) RemoveMember(ctx context.Context, resources domain.Resources, member domain.MemberID, mode domain.RemovalMode) error {
	ret := _m.Called(ctx, resources, member, mode)

	if len(ret) == 0 {
		panic("no return value specified for RemoveMember")
	}

	return ret.Error(0)
}

type MockResourceGateway_RemoveMember_Call struct {
	*mock.Call
}

func (_e *MockResourceGateway_Expecter) RemoveMember(ctx interface{}, resources interface{}, member interface{}, mode interface{}) *MockResourceGateway_RemoveMember_Call {
	return &MockResourceGateway_RemoveMember_Call{Call: _e.mock.On("RemoveMember", ctx, resources, member, mode)}
}

func (_c *MockResourceGateway_RemoveMember_Call) Return(_a0 error) *MockResourceGateway_RemoveMember_Call {
	_c.Call.Return(_a0)
	return _c
}

// NewMockResourceGateway creates a new instance of MockResourceGateway. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockResourceGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResourceGateway {
	m := &MockResourceGateway{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
