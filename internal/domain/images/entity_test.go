package images

import "testing"

func TestValidateRef(t *testing.T) {
	valid := []string{
		"alpine",
		"alpine:3.20",
		"library/alpine:latest",
		"registry.example.com/team/app:v1.2.3",
		"app@sha256:4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97",
	}
	for _, ref := range valid {
		if err := ValidateRef(ref); err != nil {
			t.Errorf("ValidateRef(%q) = %v, want nil", ref, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"app image",
		"app:tag:extra:colons/bad",
		"-leading/dash",
	}
	for _, ref := range invalid {
		if err := ValidateRef(ref); err == nil {
			t.Errorf("ValidateRef(%q) = nil, want error", ref)
		}
	}
}

func TestValidateDigest(t *testing.T) {
	good := "sha256:4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97"
	if err := ValidateDigest(good); err != nil {
		t.Fatalf("ValidateDigest: %v", err)
	}

	bad := []string{
		"",
		"4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97",
		"sha256:short",
		"sha512:4b825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97",
		"sha256:ZZ825dc642cb6eb9a060e54bf8d69288fbee4904f745a4bcf4c0916cf10e8a97",
	}
	for _, d := range bad {
		if err := ValidateDigest(d); err == nil {
			t.Errorf("ValidateDigest(%q) = nil, want error", d)
		}
	}
}
