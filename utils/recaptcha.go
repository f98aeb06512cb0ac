package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"nexcrm/config"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// CaptchaVerifier checks a captcha token with the upstream service.
type CaptchaVerifier interface {
	Verify(token string) (bool, error)
}

// RecaptchaVerifier verifies tokens against Google reCAPTCHA.
type RecaptchaVerifier struct {
	secretKey string
	client    *fasthttp.Client
}

func NewRecaptchaVerifier() *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secretKey: config.AppConfig.RecaptchaSecretKey,
		client:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
	}
}

func (v *RecaptchaVerifier) Verify(token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(recaptchaVerifyURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(fmt.Sprintf("secret=%s&response=%s", v.secretKey, token))

	if err := v.client.Do(req, resp); err != nil {
		return false, fmt.Errorf("recaptcha request failed: %w", err)
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return false, fmt.Errorf("recaptcha response parse failed: %w", err)
	}
	return result.Success, nil
}
