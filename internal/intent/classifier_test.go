package intent

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/mailbox-auditor/internal/core"
	"github.com/mikey/mailbox-auditor/internal/utils"
)

func newTestClassifier() *Classifier {
	return NewClassifier(utils.NewTextProcessor(zap.NewNop()), zap.NewNop())
}

func TestClassifyDomainRules(t *testing.T) {
	classifier := newTestClassifier()

	tests := []struct {
		name    string
		address string
		want    core.IntentLabel
	}{
		{"facebook notifications", "notification@facebookmail.com", core.IntentSocial},
		{"linkedin", "jobs-noreply@linkedin.com", core.IntentSocial},
		{"subdomain matches the suffix", "news@mail.linkedin.com", core.IntentSocial},
		{"suffix must be a whole label", "billing@felix.com", core.IntentOther},
		{"address without a domain", "not-an-email", core.IntentOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, confidence := classifier.Classify(tt.address, nil)
			if label != tt.want {
				t.Errorf("label = %v, want %v", label, tt.want)
			}
			if tt.want == core.IntentSocial && confidence != 1.0 {
				t.Errorf("confidence = %v, want 1.0", confidence)
			}
		})
	}
}

// A social platform domain outranks whatever the subjects say.
func TestClassifyDomainBeatsSubjects(t *testing.T) {
	classifier := newTestClassifier()

	subjects := []string{"50% off everything", "Last chance sale"}
	label, confidence := classifier.Classify("deals@facebookmail.com", subjects)
	if label != core.IntentSocial {
		t.Errorf("label = %v, want %v", label, core.IntentSocial)
	}
	if confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", confidence)
	}
}

// A receipt with a discount footer is still a receipt.
func TestClassifyTransactionalOverPromotional(t *testing.T) {
	classifier := newTestClassifier()

	subjects := []string{"Receipt for your purchase - 20% off next order"}
	label, _ := classifier.Classify("shop@store.com", subjects)
	if label != core.IntentTransactional {
		t.Errorf("label = %v, want %v", label, core.IntentTransactional)
	}
}

func TestClassifyKeywordConfidence(t *testing.T) {
	classifier := newTestClassifier()

	tests := []struct {
		name     string
		subjects []string
		want     core.IntentLabel
		wantConf float64
	}{
		{
			name:     "one of four is floored",
			subjects: []string{"Receipt #123", "catching up", "lunch next week", "quick question"},
			want:     core.IntentTransactional,
			wantConf: 0.3,
		},
		{
			name:     "half match",
			subjects: []string{"Receipt #123", "Invoice for March", "catching up", "quick question"},
			want:     core.IntentTransactional,
			wantConf: 0.5,
		},
		{
			name:     "all match",
			subjects: []string{"Your order shipped", "Payment received", "Booking confirmed"},
			want:     core.IntentTransactional,
			wantConf: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, confidence := classifier.Classify("noreply@store.com", tt.subjects)
			if label != tt.want {
				t.Errorf("label = %v, want %v", label, tt.want)
			}
			if math.Abs(confidence-tt.wantConf) > 1e-9 {
				t.Errorf("confidence = %v, want %v", confidence, tt.wantConf)
			}
		})
	}
}

func TestClassifyPatterns(t *testing.T) {
	classifier := newTestClassifier()

	tests := []struct {
		name    string
		subject string
		want    core.IntentLabel
	}{
		{"order number shape", "Your order # A1234 has left the warehouse", core.IntentTransactional},
		{"percent-off without spaces", "Everything 25%OFF this weekend", core.IntentPromotional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, _ := classifier.Classify("noreply@store.com", []string{tt.subject})
			if label != tt.want {
				t.Errorf("label = %v, want %v", label, tt.want)
			}
		})
	}
}

// Full-width Unicode decoration must not dodge the keyword match.
func TestClassifyNormalizesUnicode(t *testing.T) {
	classifier := newTestClassifier()

	label, _ := classifier.Classify("deals@store.com", []string{"ＳＡＬＥ ends tonight"})
	if label != core.IntentPromotional {
		t.Errorf("label = %v, want %v", label, core.IntentPromotional)
	}
}

func TestClassifySocialSubjectKeywords(t *testing.T) {
	classifier := newTestClassifier()

	label, _ := classifier.Classify("noreply@somesite.com", []string{"Alex tagged you in a photo"})
	if label != core.IntentSocial {
		t.Errorf("label = %v, want %v", label, core.IntentSocial)
	}
}

func TestClassifyInformational(t *testing.T) {
	classifier := newTestClassifier()

	label, _ := classifier.Classify("news@blog.com", []string{"Your weekly digest", "March newsletter"})
	if label != core.IntentInformational {
		t.Errorf("label = %v, want %v", label, core.IntentInformational)
	}
}

func TestClassifyNoSignal(t *testing.T) {
	classifier := newTestClassifier()

	tests := []struct {
		name     string
		subjects []string
	}{
		{"no subjects", nil},
		{"whitespace only", []string{"   ", "\t"}},
		{"nothing matches", []string{"hi", "re: tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, confidence := classifier.Classify("person@gmail.com", tt.subjects)
			if label != core.IntentOther {
				t.Errorf("label = %v, want %v", label, core.IntentOther)
			}
			if confidence != 0 {
				t.Errorf("confidence = %v, want 0", confidence)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	classifier := newTestClassifier()
	subjects := []string{"Receipt #99", "Weekly digest", "50% off"}

	firstLabel, firstConf := classifier.Classify("mixed@store.com", subjects)
	for i := 0; i < 10; i++ {
		label, confidence := classifier.Classify("mixed@store.com", subjects)
		if label != firstLabel || confidence != firstConf {
			t.Fatalf("run %d = %v/%v, want %v/%v", i, label, confidence, firstLabel, firstConf)
		}
	}
}
