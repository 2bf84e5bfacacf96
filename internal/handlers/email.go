package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/workstead/workstead/pkg/errors"
	"github.com/workstead/workstead/pkg/mail"
	"github.com/workstead/workstead/pkg/metrics"
	"github.com/workstead/workstead/pkg/response"
)

// EmailHandler proxies outbound mail through the configured SMTP relay.
type EmailHandler struct {
	mailer mail.Mailer
}

// NewEmailHandler constructs an EmailHandler instance.
func NewEmailHandler(mailer mail.Mailer) (*EmailHandler, error) {
	if mailer == nil {
		return nil, errors.New("email handler: mailer is required")
	}
	return &EmailHandler{mailer: mailer}, nil
}

type sendEmailRequest struct {
	To      []string `json:"to" validate:"required,min=1,dive,email"`
	From    string   `json:"from" validate:"omitempty,email"`
	Subject string   `json:"subject" validate:"required,max=256"`
	HTML    string   `json:"html" validate:"omitempty"`
	Text    string   `json:"text" validate:"omitempty"`
}

// POST /send-email
func (h *EmailHandler) Send(c *gin.Context) {
	var body sendEmailRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if body.HTML == "" && body.Text == "" {
		response.Error(c, appErrors.NewBadRequest("either html or text body is required"))
		return
	}

	messageID, err := h.mailer.Send(requestContext(c), mail.Message{
		From:    body.From,
		To:      body.To,
		Subject: body.Subject,
		HTML:    body.HTML,
		Text:    body.Text,
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failure").Inc()
		if errors.Is(err, mail.ErrSMTPDisabled) {
			response.Error(c, appErrors.ErrUnreachable.WithInternal(err))
			return
		}
		response.Error(c, appErrors.ErrUpstreamQuery.WithInternal(err))
		return
	}

	metrics.EmailsSent.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, gin.H{
		"success":    true,
		"message_id": messageID,
	})
}
