package identity

import "testing"

func TestContactKeys(t *testing.T) {
	c := Contact{Phone: "(11) 99999-0000", Email: " Maria.Silva@Example.COM "}

	if got := c.PhoneKey(); got != "phone:5511999990000" {
		t.Fatalf("unexpected phone key %q", got)
	}
	if got := c.EmailKey(); got != "email:maria.silva@example.com" {
		t.Fatalf("unexpected email key %q", got)
	}
	// Phone wins over email as the primary key.
	if got := c.Key(); got != "phone:5511999990000" {
		t.Fatalf("unexpected primary key %q", got)
	}
}

func TestContactKeyFallsBackToEmail(t *testing.T) {
	c := Contact{Email: "user@example.com"}
	if got := c.Key(); got != "email:user@example.com" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestHasUsableInput(t *testing.T) {
	if (Contact{Name: "Maria Silva"}).HasUsableInput() {
		t.Fatal("name alone is not usable lookup input")
	}
	if !(Contact{Phone: "11999990000"}).HasUsableInput() {
		t.Fatal("phone should be usable input")
	}
	if !(Contact{Email: "a@b.com"}).HasUsableInput() {
		t.Fatal("email should be usable input")
	}
}
