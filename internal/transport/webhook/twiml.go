package webhook

import (
	"io"
	"net/http"

	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

const signatureHeader = "X-Twilio-Signature"

func writeTwiML(w io.Writer, messages []string) error {
	verbs := make([]twiml.Element, 0, len(messages))
	for _, m := range messages {
		verbs = append(verbs, &twiml.MessagingMessage{Body: m})
	}
	doc, err := twiml.Messages(verbs)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, doc)
	return err
}

// signatureValidator checks X-Twilio-Signature against the public URL Twilio
// posted to. A nil validator accepts everything.
type signatureValidator struct {
	rv      client.RequestValidator
	baseURL string
}

func newSignatureValidator(authToken, baseURL string) *signatureValidator {
	if authToken == "" {
		return nil
	}
	return &signatureValidator{rv: client.NewRequestValidator(authToken), baseURL: baseURL}
}

// valid expects r.PostForm to be parsed already.
func (v *signatureValidator) valid(r *http.Request) bool {
	if v == nil {
		return true
	}
	params := make(map[string]string, len(r.PostForm))
	for k, vals := range r.PostForm {
		if len(vals) > 0 {
			params[k] = vals[0]
		}
	}
	return v.rv.Validate(v.baseURL+r.URL.RequestURI(), params, r.Header.Get(signatureHeader))
}
