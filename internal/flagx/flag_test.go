package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	got := FilterArgs([]string{"-d", "dsn", "-x", "junk", "-p", "10s"}, []string{"-d", "-p"})
	assert.Equal(t, []string{"-d", "dsn", "-p", "10s"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	got := FilterArgs([]string{"--config=conf.json", "-d=dsn", "-x=1"}, []string{"--config", "-d"})
	assert.Equal(t, []string{"--config=conf.json", "-d=dsn"}, got)
}

func TestFilterArgs_FlagWithoutValue(t *testing.T) {
	got := FilterArgs([]string{"-d", "-p", "10s"}, []string{"-d", "-p"})
	assert.Equal(t, []string{"-d", "-p", "10s"}, got)
}

func TestFilterArgs_Empty(t *testing.T) {
	got := FilterArgs(nil, []string{"-d"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "conf.json", ConfigFileFlag([]string{"-c", "conf.json"}))
	assert.Equal(t, "conf.json", ConfigFileFlag([]string{"-config=conf.json"}))
	assert.Equal(t, "", ConfigFileFlag([]string{"-d", "dsn"}))
}
