// internal/di/container_test.go
package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

// TestContainerRegisterAndResolve 测试注册与按类型获取
func TestContainerRegisterAndResolve(t *testing.T) {
	c := NewContainer()
	c.Register("greeter", &greeter{name: "민수"})

	assert.True(t, c.Has("greeter"))
	g, err := Resolve[*greeter](c, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "민수", g.name)

	_, err = Resolve[*greeter](c, "missing")
	assert.Error(t, err)

	_, err = Resolve[string](c, "greeter")
	assert.Error(t, err)
}

// TestContainerOrder 测试注册顺序与移除
func TestContainerOrder(t *testing.T) {
	c := NewContainer()
	c.Register(ServiceSplit, 1)
	c.Register(ServiceLLM, 2)
	c.Register(ServiceStorage, 3)
	c.Register(ServiceSplit, 4)

	assert.Equal(t, []string{ServiceSplit, ServiceLLM, ServiceStorage}, c.RegistrationOrder())
	assert.Equal(t, []string{ServiceLLM, ServiceSplit, ServiceStorage}, c.GetNames())
	assert.Equal(t, 4, c.Get(ServiceSplit))

	c.Remove(ServiceLLM)
	assert.False(t, c.Has(ServiceLLM))
	assert.Equal(t, []string{ServiceSplit, ServiceStorage}, c.RegistrationOrder())

	c.Clear()
	assert.Empty(t, c.GetNames())
	assert.Empty(t, c.RegistrationOrder())
}

// TestGetContainerSingleton 测试全局容器
func TestGetContainerSingleton(t *testing.T) {
	assert.Same(t, GetContainer(), GetContainer())
}
