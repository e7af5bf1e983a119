// Package mail sends the run summary emails. Successive notifications for
// the same run are threaded via In-Reply-To/References headers; the thread
// is an explicit list of message identifiers passed and returned by value.
package mail

import (
	"bytes"
	"fmt"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/majerti/runbackup/pkg/config"
	"github.com/majerti/runbackup/pkg/errors"
)

// Mocked for unit testing.
var (
	fs = afero.NewOsFs()

	send = func(msg *email.Email, addr string) error {
		return msg.Send(addr, nil)
	}

	newMessageID = func() string {
		return fmt.Sprintf("<%d.%d@runbackup>", time.Now().UnixNano(), os.Getpid())
	}
)

// Attachment names a log file to attach to a notification.
type Attachment struct {
	Name string
	Path string
}

// Notifier sends notifications for one logical run. It holds no mutable
// state: the message thread lives in the Thread values passed through Send.
type Notifier struct {
	Config config.Mail
	Log    *log.Logger
}

// Thread is the ordered list of message identifiers sent so far for a run.
type Thread []string

// Send builds a multipart message with the given attachments and sends it
// over SMTP. When thread is non-empty, the message replies to the most
// recent identifier and references the whole chain. It returns the thread
// extended with the new message's identifier.
func (notifier Notifier) Send(subject, body string, attachments []Attachment,
	thread Thread) (Thread, error) {

	notifier.Log.Debugf("sending mail to %s", notifier.Config.To)

	msg := email.NewEmail()
	msg.From = notifier.Config.From
	msg.To = []string{notifier.Config.To}
	msg.Subject = subject
	msg.Text = []byte(body)

	id := newMessageID()
	msg.Headers = textproto.MIMEHeader{}
	msg.Headers.Set("Message-Id", id)
	if len(thread) > 0 {
		msg.Headers.Set("In-Reply-To", thread[len(thread)-1])
		msg.Headers.Set("References", strings.Join(thread, " "))
	}

	for _, attachment := range attachments {
		contents, err := readAttachment(attachment.Path)
		if err != nil {
			// A missing log file shouldn't prevent the rest of the summary
			// from going out.
			notifier.Log.WithError(err).Errorf(
				"failed to read attachment %q", attachment.Path)
			continue
		}
		if _, err := msg.Attach(
			bytes.NewReader(contents), attachment.Name, "text/plain"); err != nil {
			return thread, errors.WithContext(err,
				fmt.Sprintf("attach %q", attachment.Name))
		}
	}

	if err := send(msg, notifier.Config.SMTPAddr); err != nil {
		return thread, errors.WithContext(err, "send mail")
	}
	return append(thread, id), nil
}

// readAttachment reads a log file to attach to a notification.
func readAttachment(path string) ([]byte, error) {
	if exists, err := afero.Exists(fs, path); err == nil && !exists {
		return nil, errors.FileNotFound{Path: path}
	}
	return afero.ReadFile(fs, path)
}

// ReadReturnCode reads the recorded rsync exit code for the summary body.
// It returns "unknown" when the run never got far enough to record one.
func ReadReturnCode(path string) string {
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		return "unknown"
	}
	code := strings.TrimSpace(string(contents))
	if code == "" {
		return "unknown"
	}
	return code
}
