package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/majerti/runbackup/pkg/config"
)

func TestShowConfig(t *testing.T) {
	parseConfig = func(section string) (config.RunContext, error) {
		assert.Equal(t, "main_backup", section)
		return config.RunContext{
			Section:     "main_backup",
			Host:        "h",
			SrcDir:      "/a/",
			DstDir:      "/b/",
			LogBase:     "/logs",
			TimeoutSecs: 300,
			Mail: &config.Mail{
				To:       "ops@example.com",
				From:     "backup@example.com",
				SMTPAddr: "smtp:25",
			},
		}, nil
	}

	out := bytes.NewBuffer(nil)
	stdout = out

	assert.NoError(t, showConfig("main_backup"))
	assert.Equal(t, `dstDir: /b/
host: h
logbase: /logs
mail:
  from: backup@example.com
  smtpAddr: smtp:25
  to: ops@example.com
section: main_backup
srcDir: /a/
timeoutSecs: 300
`, out.String())
}
