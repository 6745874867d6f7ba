package echoapi

import (
	"strings"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/registration"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	// VisitResponse is returned on visit open; the id drives every
	// subsequent portal call.
	VisitResponse struct {
		ID       string                `json:"id"`
		Snapshot registration.Snapshot `json:"snapshot"`
	}

	// CheckInRequest carries the phone number as the visitor typed it plus
	// the selected country; the server derives the canonical number.
	CheckInRequest struct {
		Country     string `json:"country" validate:"required,len=2"`
		PhoneNumber string `json:"phoneNumber" validate:"required"`
	}

	ReceiptRequest struct {
		ReceiptMessage string `json:"receiptMessage" validate:"required"`
	}

	BlockRequest struct {
		Reason string `json:"reason" validate:"required,min=3,max=200"`
	}

	SetLinkRequest struct {
		URL string `json:"url" validate:"required,url"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func (cr *CheckInRequest) Validate() error {
	cr.Country = strings.ToUpper(core.CleanString(cr.Country))
	cr.PhoneNumber = core.CleanString(cr.PhoneNumber)
	return core.Validate.Struct(cr)
}

func (rr *ReceiptRequest) Validate() error {
	rr.ReceiptMessage = core.CleanString(rr.ReceiptMessage)
	return core.Validate.Struct(rr)
}

func (br *BlockRequest) Validate() error {
	br.Reason = core.CleanString(br.Reason)
	return core.Validate.Struct(br)
}

func (sr *SetLinkRequest) Validate() error {
	sr.URL = core.CleanString(sr.URL)
	return core.Validate.Struct(sr)
}
