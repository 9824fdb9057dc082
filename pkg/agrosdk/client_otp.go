package agrosdk

import "context"

// SendOTP asks the service to deliver a code to phone. The phone must
// already be canonical (see NormalizePhone).
func (c *SDKClient) SendOTP(ctx context.Context, phone string) (*SendOTPResponse, error) {
	var out SendOTPResponse
	if err := c.postJSON(ctx, "/api/auth/send-otp", SendOTPRequest{Phone: phone}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP exchanges a code for a session token.
func (c *SDKClient) VerifyOTP(ctx context.Context, phone, otp string) (*VerifyOTPResponse, error) {
	var out VerifyOTPResponse
	if err := c.postJSON(ctx, "/api/auth/verify-otp", VerifyOTPRequest{Phone: phone, OTP: otp}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
