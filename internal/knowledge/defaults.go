// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package knowledge

// defaultDocument is the minimal table used when no common document can be loaded
func defaultDocument() Document {
	p := func(v int) *int { return &v }
	return Document{
		"business_name": {
			Patterns:   []string{`\b(business|company|entity|corporate|legal)[\s_-]*name\b`},
			Keywords:   []string{"business name", "legal name", "entity name", "company name", "dba name"},
			Attributes: []string{"business_name", "company_name", "entity_name"},
			Priority:   p(95),
		},
		"tax_identifier": {
			Patterns:   []string{`\b(f?ein|tin)\b`, `\btax[\s_-]*id`},
			Keywords:   []string{"ein", "fein", "tin", "tax id", "employer identification number"},
			Attributes: []string{"ein", "fein", "tax_id"},
			Priority:   p(100),
		},
		"entity_type": {
			Keywords:   []string{"entity type", "business type", "business structure", "type of entity"},
			Attributes: []string{"entity_type", "business_type"},
			Priority:   p(90),
		},
		"email": {
			Patterns:   []string{`\be-?mail\b`},
			Keywords:   []string{"email", "email address"},
			Attributes: []string{"email"},
			Priority:   p(85),
		},
		"phone": {
			Patterns:   []string{`\b(tele)?phone\b`},
			Keywords:   []string{"phone", "phone number", "telephone"},
			Attributes: []string{"phone", "tel"},
			Priority:   p(85),
		},
	}
}
