package mocks

import (
	context "context"

	domain "github.com/bnema/lfg-coordinator/internal/domain"
	mock "github.com/stretchr/testify/mock"
)

// MockOccupancyProbe is a mock type for the OccupancyProbe type
type MockOccupancyProbe struct {
	mock.Mock
}

type MockOccupancyProbe_Expecter struct {
	mock *mock.Mock
}

func (_m *MockOccupancyProbe) EXPECT() *MockOccupancyProbe_Expecter {
	return &MockOccupancyProbe_Expecter{mock: &_m.Mock}
}

// Occupants provides a mock function with given fields: ctx, voiceRoomID
func (_m *MockOccupancyProbe) Occupants(ctx context.Context, voiceRoomID string) ([]domain.MemberID, error) {
	ret := _m.Called(ctx, voiceRoomID)

	if len(ret) == 0 {
		panic("no return value specified for Occupants")
	}

	var r0 []domain.MemberID
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) ([]domain.MemberID, error)); ok {
		return rf(ctx, voiceRoomID)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.MemberID)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// MockOccupancyProbe_Occupants_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'Occupants'
type MockOccupancyProbe_Occupants_Call struct {
	*mock.Call
}

// Occupants is a helper method to define mock.On call
//   - ctx context.Context
//   - voiceRoomID string
func (_e *MockOccupancyProbe_Expecter) Occupants(ctx interface{}, voiceRoomID interface{}) *MockOccupancyProbe_Occupants_Call {
	return &MockOccupancyProbe_Occupants_Call{Call: _e.mock.On("Occupants", ctx, voiceRoomID)}
}

func (_c *MockOccupancyProbe_Occupants_Call) Return(_a0 []domain.MemberID, _a1 error) *MockOccupancyProbe_Occupants_Call {
	_c.Call.Return(_a0, _a1)
	return _c
}

// NewMockOccupancyProbe creates a new instance of MockOccupancyProbe. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockOccupancyProbe(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOccupancyProbe {
	m := &MockOccupancyProbe{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
