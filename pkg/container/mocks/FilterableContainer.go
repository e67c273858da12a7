package mocks

import "github.com/stretchr/testify/mock"

// FilterableContainer is a mock type for the FilterableContainer type.
type FilterableContainer struct {
	mock.Mock
}

// Name provides a mock function with given fields:.
func (_m *FilterableContainer) Name() string {
	ret := _m.Called()

	var result0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		result0 = rf()
	} else {
		result0 = ret.Get(0).(string)
	}

	return result0
}

// Labels provides a mock function with given fields:.
func (_m *FilterableContainer) Labels() map[string]string {
	ret := _m.Called()

	var result0 map[string]string
	if rf, ok := ret.Get(0).(func() map[string]string); ok {
		result0 = rf()
	} else if ret.Get(0) != nil {
		result0 = ret.Get(0).(map[string]string)
	}

	return result0
}

// ImageName provides a mock function with given fields:.
func (_m *FilterableContainer) ImageName() string {
	ret := _m.Called()

	var result0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		result0 = rf()
	} else {
		result0 = ret.Get(0).(string)
	}

	return result0
}
