// Package messages maps submission outcomes to the text shown to the person
// filling in a form.
package messages

import (
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/media"
)

// Catalog keys.
const (
	SubmittedKey       = "intake.submitted"
	IncompleteKey      = "intake.incomplete"
	ImageDecodeKey     = "intake.image.decode"
	ImageTooLargeKey   = "intake.image.too_large"
	ImageOverLimitKey  = "intake.image.over_limit"
	DecryptResponseKey = "intake.response.decrypt"
	NetworkKey         = "intake.network"
	ServerKey          = "intake.server"
	CanceledKey        = "intake.canceled"
	FailedKey          = "intake.failed"
)

func init() {
	lang := language.English

	message.SetString(lang, SubmittedKey, "Feedback submitted successfully!")
	message.SetString(lang, IncompleteKey, "Please complete the form and add your signature.")
	message.SetString(lang, ImageDecodeKey, "Could not process image. Please upload a JPEG/PNG.")
	message.SetString(lang, ImageTooLargeKey, "Image too large. Please select a smaller image.")
	message.SetString(lang, ImageOverLimitKey, "Image must be under 5 MB.")
	message.SetString(lang, DecryptResponseKey, "Failed to decrypt server response")
	message.SetString(lang, NetworkKey, "Network error. Please try again.")
	message.SetString(lang, ServerKey, "Error submitting feedback.")
	message.SetString(lang, CanceledKey, "Submission canceled.")
	message.SetString(lang, FailedKey, "Submission failed. Please try again.")
}

// Key returns the catalog key for err. A nil error is a successful submission.
func Key(err error) string {
	if err == nil {
		return SubmittedKey
	}
	var fe *failure.Error
	if !errors.As(err, &fe) {
		return FailedKey
	}
	switch fe.Kind {
	case failure.KindValidation:
		return IncompleteKey
	case failure.KindImageDecode:
		return ImageDecodeKey
	case failure.KindImageTooLarge:
		if fe.Limit == media.MaxOutputBytes {
			return ImageOverLimitKey
		}
		return ImageTooLargeKey
	case failure.KindResponseDecode, failure.KindFormat, failure.KindDecrypt, failure.KindParse:
		return DecryptResponseKey
	case failure.KindNetwork:
		return NetworkKey
	case failure.KindServer:
		return ServerKey
	case failure.KindCanceled:
		return CanceledKey
	}
	return FailedKey
}

// For returns the localized text for err. A Server failure carrying the
// counterpart's own error text returns that text instead.
func For(err error, tag language.Tag) string {
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Kind == failure.KindServer && fe.Remote != "" {
		return fe.Remote
	}
	return message.NewPrinter(tag).Sprintf(Key(err))
}
