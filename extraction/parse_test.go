package extraction

import "testing"

func TestParseSectioned(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantValue   string
		wantSection string
	}{
		{"both prefixes", "Value: 30 days\nSection: 12.1", "30 days", "12.1"},
		{"reversed order", "Section: 4.2 Term\nValue: 3 years", "3 years", "4.2 Term"},
		{"neither prefix", "The contract does not say.", NotSpecified, NotFound},
		{"empty input", "", NotSpecified, NotFound},
		{"value only", "Value: EUR", "EUR", NotFound},
		{"section only", "Section: 9.3", NotSpecified, "9.3"},
		{"indented lines", "   Value:   New York law  \n\t Section: 18.1 ", "New York law", "18.1"},
		{"last occurrence wins", "Value: first\nValue: second\nSection: 1.1\nSection: 2.2", "second", "2.2"},
		{"empty value is kept empty", "Value:\nSection: 3.1", "", "3.1"},
		{"whitespace remainders are empty", "Value:    \nSection:   ", "", ""},
		{"prefix is case sensitive", "value: lower\nSECTION: 1", NotSpecified, NotFound},
		{"colon inside value", "Value: Payment: net 45\nSection: 7.1(a)", "Payment: net 45", "7.1(a)"},
		{"chatter around answer", "Sure, here it is.\nValue: Delaware\nSection: 20.4\nHope this helps.", "Delaware", "20.4"},
		{"crlf line endings", "Value: 5%\r\nSection: 8.2\r\n", "5%", "8.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSectioned(tt.in)
			if got.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", got.Value, tt.wantValue)
			}
			if got.Section != tt.wantSection {
				t.Errorf("Section = %q, want %q", got.Section, tt.wantSection)
			}
		})
	}
}

func TestParseSectionedExplicitSentinelIsIndistinguishable(t *testing.T) {
	explicit := ParseSectioned("Value: Not specified\nSection: Not found")
	missing := ParseSectioned("no structured answer")
	if explicit != missing {
		t.Errorf("explicit sentinel %+v differs from missing %+v", explicit, missing)
	}
}

func TestParseBare(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantValue string
		wantConf  Confidence
	}{
		{"plain value", "  United States Dollar \n", "United States Dollar", High},
		{"empty", "", NotSpecified, Low},
		{"whitespace", " \n\t ", NotSpecified, Low},
		{"sentinel", "Not specified", NotSpecified, Low},
		{"sentinel lower case inside text", "Currency: not specified in the agreement", "Currency: not specified in the agreement", Low},
		{"prefixed answer kept whole", "Currency: EUR", "Currency: EUR", High},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBare(tt.in)
			if got.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", got.Value, tt.wantValue)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("Confidence = %q, want %q", got.Confidence, tt.wantConf)
			}
			if got.Section != "" {
				t.Errorf("bare parse should not set Section, got %q", got.Section)
			}
		})
	}
}
