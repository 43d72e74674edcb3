package local

import "testing"

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(otp) != otpDigits {
			t.Fatalf("len = %d", len(otp))
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit in %q", otp)
			}
		}
	}
}

func TestHashOTPAndEqual(t *testing.T) {
	h := HashOTP("123456")
	if len(h) != 64 || h == "123456" {
		t.Fatalf("HashOTP = %q", h)
	}
	if !OTPEqual("123456", h) {
		t.Error("OTPEqual should match")
	}
	if OTPEqual("654321", h) || OTPEqual("", h) {
		t.Error("OTPEqual should not match")
	}
}
