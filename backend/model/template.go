package model

import "regexp"

// TemplateKey selects a contract body template.
type TemplateKey string

const (
	TemplateNDA TemplateKey = "NDA"
	TemplateMSA TemplateKey = "MSA"
	TemplateSOW TemplateKey = "SOW"
)

var templateBodies = map[TemplateKey][]string{
	TemplateNDA: {
		"This Non-Disclosure Agreement (NDA) is made between {CompanyName} and {CounterpartyName}.",
		"Parties agree to protect Confidential Information disclosed for the Project.",
		"Governing Law: {GoverningLaw}. Effective Date: {EffectiveDate}.",
	},
	TemplateMSA: {
		"This Master Services Agreement (MSA) is between {CompanyName} and {CounterpartyName}.",
		"It governs services to be provided under Statements of Work.",
		"Term: {Term}. Effective Date: {EffectiveDate}.",
	},
	TemplateSOW: {
		"This Statement of Work (SOW) is issued under the MSA between {CompanyName} and {CounterpartyName}.",
		"Scope: {Scope}. Fees: {Fees}. Timeline: {Timeline}.",
	},
}

var placeholderRE = regexp.MustCompile(`\{(.*?)\}`)

// Valid reports whether k is a known template.
func (k TemplateKey) Valid() bool {
	_, ok := templateBodies[k]
	return ok
}

// TemplateBody returns a copy of the body lines for k, or nil if unknown.
func TemplateBody(k TemplateKey) []string {
	return append([]string(nil), templateBodies[k]...)
}

// Substitute replaces {Name} tokens with fields[Name]. Tokens with no value
// are left as-is.
func Substitute(lines []string, fields map[string]string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = placeholderRE.ReplaceAllStringFunc(line, func(token string) string {
			key := token[1 : len(token)-1]
			if v, ok := fields[key]; ok {
				return v
			}
			return token
		})
	}
	return out
}
