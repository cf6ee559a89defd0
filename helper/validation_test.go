package helper

import (
	"strings"
	"testing"
)

type validationInner struct {
	Host string `errorTxt:"host" mandatory:"yes"`
}

type validationOuter struct {
	Name     string `errorTxt:"name" mandatory:"yes"`
	Port     int    `errorTxt:"port" mandatory:"yes"`
	Optional string
	Inner    validationInner
	hidden   string
}

func TestValidateStructIsPopulated(t *testing.T) {
	err := ValidateStructIsPopulated(&validationOuter{Optional: "x"})
	if err == nil {
		t.Fatal("expected an error for unset mandatory fields")
	}
	for _, txt := range []string{"name", "port", "host"} {
		if !strings.Contains(err.Error(), txt) {
			t.Fatalf("expected error %q to mention %q", err, txt)
		}
	}
	if err := ValidateStructIsPopulated(validationOuter{Name: "n", Port: 1, Inner: validationInner{Host: "h"}}); err != nil {
		t.Fatalf("unexpected error for a populated struct: %v", err)
	}
}
