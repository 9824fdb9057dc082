// Package sms delivers one-time codes to phones.
package sms

import "context"

// Sender delivers a one-time code to phone.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}
