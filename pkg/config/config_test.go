package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majerti/runbackup/pkg/errors"
)

func mockEnv() {
	getenv = func(key string) string {
		if key == "XDG_CONFIG_HOME" {
			return "/xdg"
		}
		return ""
	}
	homedirDir = func() (string, error) {
		return "/home/test", nil
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		contents  string
		section   string
		expConfig RunContext
		expError  error
	}{
		{
			name: "Minimal",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n",
			section: "main_backup",
			expConfig: RunContext{
				Section: "main_backup",
				Host:    "h",
				SrcDir:  "/a/",
				DstDir:  "/b/",
				LogBase: "/logs",
			},
		},
		{
			name: "TrailingSlashAdded",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a\n" +
				"dst_dir = /b\n" +
				"logbase = /logs\n",
			section: "main_backup",
			expConfig: RunContext{
				Section: "main_backup",
				Host:    "h",
				SrcDir:  "/a/",
				DstDir:  "/b/",
				LogBase: "/logs",
			},
		},
		{
			name: "Timeout",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n" +
				"timeout_secs = 300\n",
			section: "main_backup",
			expConfig: RunContext{
				Section:     "main_backup",
				Host:        "h",
				SrcDir:      "/a/",
				DstDir:      "/b/",
				LogBase:     "/logs",
				TimeoutSecs: 300,
			},
		},
		{
			name: "BadTimeout",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n" +
				"timeout_secs = soon\n",
			section: "main_backup",
			expError: errors.NewFriendlyError(
				`timeout_secs in section "main_backup" must be a positive integer, got "soon"`),
		},
		{
			name: "MailWithDefaults",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n" +
				"mailto = ops@example.com\n" +
				"[mail]\n" +
				"mailfrom = backup@example.com\n",
			section: "main_backup",
			expConfig: RunContext{
				Section: "main_backup",
				Host:    "h",
				SrcDir:  "/a/",
				DstDir:  "/b/",
				LogBase: "/logs",
				Mail: &Mail{
					To:       "ops@example.com",
					From:     "backup@example.com",
					SMTPAddr: "smtp:25",
				},
			},
		},
		{
			name: "MailfromInBackupSectionWins",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n" +
				"mailto = ops@example.com\n" +
				"mailfrom = primary@example.com\n" +
				"[mail]\n" +
				"mailfrom = fallback@example.com\n" +
				"smtp = relay.example.com:2525\n",
			section: "main_backup",
			expConfig: RunContext{
				Section: "main_backup",
				Host:    "h",
				SrcDir:  "/a/",
				DstDir:  "/b/",
				LogBase: "/logs",
				Mail: &Mail{
					To:       "ops@example.com",
					From:     "primary@example.com",
					SMTPAddr: "relay.example.com:2525",
				},
			},
		},
		{
			name: "MailtoWithoutMailSection",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n" +
				"mailto = ops@example.com\n",
			section: "main_backup",
			expError: errors.MissingSectionError{
				Section: "mail",
				Path:    "/xdg/runbackup.rc",
			},
		},
		{
			name: "MailWithoutMailfrom",
			contents: "[main_backup]\n" +
				"host = h\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n" +
				"mailto = ops@example.com\n" +
				"[mail]\n" +
				"smtp = relay\n",
			section: "main_backup",
			expError: errors.MissingFieldError{Field: "mailfrom", Section: "mail"},
		},
		{
			name: "MissingKey",
			contents: "[main_backup]\n" +
				"src_dir = /a/\n" +
				"dst_dir = /b/\n" +
				"logbase = /logs\n",
			section:  "main_backup",
			expError: errors.MissingFieldError{Field: "host", Section: "main_backup"},
		},
		{
			name:     "MissingSection",
			contents: "[other]\nhost = h\n",
			section:  "main_backup",
			expError: errors.MissingSectionError{
				Section: "main_backup",
				Path:    "/xdg/runbackup.rc",
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			mockEnv()
			require.NoError(t, afero.WriteFile(fs, "/xdg/runbackup.rc",
				[]byte(test.contents), 0644))

			ctx, err := Parse(test.section)
			if test.expError != nil {
				assert.EqualError(t, err, test.expError.Error())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expConfig, ctx)
		})
	}
}

func TestParseNoConfigFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	mockEnv()

	_, err := Parse(DefaultSection)
	assert.Equal(t, errors.NoConfigFileError{Candidates: []string{
		"/xdg/runbackup.rc",
		"/etc/xdg/runbackup.rc",
		"/home/test/runbackup.rc",
	}}, err)
}

func TestConfigFileFromLaterCandidate(t *testing.T) {
	fs = afero.NewMemMapFs()
	mockEnv()
	contents := "[main_backup]\n" +
		"host = h\n" +
		"src_dir = /a/\n" +
		"dst_dir = /b/\n" +
		"logbase = /logs\n"
	require.NoError(t, afero.WriteFile(fs, "/home/test/runbackup.rc",
		[]byte(contents), 0644))

	ctx, err := Parse(DefaultSection)
	assert.NoError(t, err)
	assert.Equal(t, "h", ctx.Host)
}

func TestTaskDesc(t *testing.T) {
	ctx := RunContext{Host: "h", SrcDir: "/a/", DstDir: "/b/"}
	assert.Equal(t, "backup of h:/a/ on /b/", ctx.TaskDesc())
}
