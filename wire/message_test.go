package wire

import (
	"testing"
	"time"
)

func TestEmitParseMessageRoundTrip(t *testing.T) {
	owner, _ := ParseName("example.com")
	msg := Message{
		ID:    0x1234,
		Flags: Flags{RecursionDesired: true},
		Questions: []Question{
			{Owner: owner, Type: TypeA, Class: ClassIN},
		},
	}

	buf, err := EmitMessage(msg)
	if err != nil {
		t.Fatalf("EmitMessage error = %v", err)
	}

	parsed, err := ParseMessage(buf, time.Now())
	if err != nil {
		t.Fatalf("ParseMessage error = %v", err)
	}
	if parsed.ID != msg.ID {
		t.Errorf("ID = %x, want %x", parsed.ID, msg.ID)
	}
	if !parsed.Flags.RecursionDesired {
		t.Error("RecursionDesired lost across round trip")
	}
	if len(parsed.Questions) != 1 || !parsed.Questions[0].Owner.Equal(owner) {
		t.Errorf("Questions = %+v", parsed.Questions)
	}
}

func TestEmitParseMessageWithAnswers(t *testing.T) {
	owner, _ := ParseName("host.example.com")
	msg := Message{
		ID:    1,
		Flags: Flags{Response: true, RCode: RCodeNoError},
		Questions: []Question{
			{Owner: owner, Type: TypeA, Class: ClassIN},
		},
		Answers: []Record{
			{
				Header: Header{Owner: owner, Type: TypeA, Class: ClassIN, TTL: 60},
				Data:   AData{Addr: [4]byte{93, 184, 216, 34}},
			},
		},
	}

	buf, err := EmitMessage(msg)
	if err != nil {
		t.Fatalf("EmitMessage error = %v", err)
	}

	parsed, err := ParseMessage(buf, time.Now())
	if err != nil {
		t.Fatalf("ParseMessage error = %v", err)
	}
	if len(parsed.Answers) != 1 {
		t.Fatalf("Answers = %d records, want 1", len(parsed.Answers))
	}
	a, ok := parsed.Answers[0].Data.(AData)
	if !ok || a.IP().String() != "93.184.216.34" {
		t.Errorf("Answers[0] = %+v", parsed.Answers[0])
	}
}

func TestParseMessageTruncatedBitDiscardsMessage(t *testing.T) {
	owner, _ := ParseName("example.com")
	msg := Message{
		ID:        1,
		Flags:     Flags{Response: true, Truncated: true},
		Questions: []Question{{Owner: owner, Type: TypeA, Class: ClassIN}},
	}

	buf, err := EmitMessage(msg)
	if err != nil {
		t.Fatalf("EmitMessage error = %v", err)
	}

	_, err = ParseMessage(buf, time.Now())
	if err == nil {
		t.Fatal("expected TruncatedError, got nil")
	}
	if _, ok := err.(TruncatedError); !ok {
		t.Errorf("error type = %T, want TruncatedError", err)
	}
}

func TestParseMessageRejectsShortHeader(t *testing.T) {
	_, err := ParseMessage([]byte{1, 2, 3}, time.Now())
	if err == nil {
		t.Fatal("expected error for header shorter than 12 bytes, got nil")
	}
}

func TestMessageUnicastResponseBit(t *testing.T) {
	owner, _ := ParseName("printer.local")
	msg := Message{
		ID: 0,
		Questions: []Question{
			{Owner: owner, Type: TypeA, Class: ClassIN, UnicastResponse: true},
		},
	}

	buf, err := EmitMessage(msg)
	if err != nil {
		t.Fatalf("EmitMessage error = %v", err)
	}
	parsed, err := ParseMessage(buf, time.Now())
	if err != nil {
		t.Fatalf("ParseMessage error = %v", err)
	}
	if !parsed.Questions[0].UnicastResponse {
		t.Error("UnicastResponse bit lost across round trip")
	}
	if parsed.Questions[0].Class != ClassIN {
		t.Errorf("Class = %v, want ClassIN with cache-flush bit stripped", parsed.Questions[0].Class)
	}
}
