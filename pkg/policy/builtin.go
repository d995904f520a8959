package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		destructiveStatementsPolicy(),
		payloadLimitsPolicy(),
		requiredLabelsPolicy(),
		retryBudgetPolicy(),
		environmentRestrictionsPolicy(),
	}
}

// destructiveStatementsPolicy blocks payloads carrying destructive statements.
func destructiveStatementsPolicy() Policy {
	return Policy{
		Name:        "destructive-statements",
		Description: "Blocks submissions whose payload contains destructive statement keywords",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"payload", "safety"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openlro.policies.statements

import rego.v1

# Statement keywords that destroy data or alter schemas
destructive_keywords := ["DROP", "TRUNCATE", "DELETE", "ALTER", "GRANT", "REVOKE"]

deny contains violation if {
	some keyword in destructive_keywords
	regex.match(sprintf("(?i)\\b%s\\b", [keyword]), input.payload)
	violation := {
		"message": sprintf("Payload contains destructive statement keyword: %s", [keyword]),
		"severity": "critical",
	}
}`,
	}
}

// payloadLimitsPolicy rejects empty and oversized payloads.
func payloadLimitsPolicy() Policy {
	return Policy{
		Name:        "payload-limits",
		Description: "Rejects empty payloads and payloads exceeding the size ceiling",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"payload", "limits"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openlro.policies.payload

import rego.v1

# Maximum payload length in characters
max_payload_chars := 100000

deny contains violation if {
	input.payload == ""
	violation := {
		"message": "Submission payload must not be empty",
		"severity": "error",
	}
}

deny contains violation if {
	count(input.payload) > max_payload_chars
	violation := {
		"message": sprintf("Payload length %d exceeds the maximum of %d characters", [count(input.payload), max_payload_chars]),
		"severity": "error",
	}
}`,
	}
}

// requiredLabelsPolicy ensures critical labels are present on production submissions.
func requiredLabelsPolicy() Policy {
	return Policy{
		Name:        "required-labels",
		Description: "Ensures critical labels (owner) are present on production submissions",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"labels", "metadata"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openlro.policies.labels

import rego.v1

required_labels := ["owner"]

deny contains violation if {
	input.context.environment == "production"
	some label in required_labels

	# Check if required label is present
	not input.labels[label]
	violation := {
		"message": sprintf("Production submissions require the %s label", [label]),
		"severity": "error",
	}
}

deny contains violation if {
	input.context.environment == "production"
	some label in required_labels

	# Check if required label has a value
	input.labels[label] == ""
	violation := {
		"message": sprintf("Production submissions have an empty required label: %s", [label]),
		"severity": "error",
	}
}`,
	}
}

// retryBudgetPolicy warns about excessive retry budget overrides.
func retryBudgetPolicy() Policy {
	return Policy{
		Name:        "retry-budget",
		Description: "Warns when a submission requests an excessive retry budget",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"budget", "limits"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openlro.policies.budget

import rego.v1

# Advisory ceiling on per-request retry budgets
max_retry_budget := 100

deny contains violation if {
	input.max_retries > max_retry_budget
	violation := {
		"message": sprintf("Requested retry budget %d exceeds the advisory ceiling of %d", [input.max_retries, max_retry_budget]),
		"severity": "warning",
	}
}`,
	}
}

// environmentRestrictionsPolicy gates write statements in production.
func environmentRestrictionsPolicy() Policy {
	return Policy{
		Name:        "environment-restrictions",
		Description: "Requires approval for write statements submitted against production",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"environment", "safety", "production"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openlro.policies.environments

import rego.v1

# Statement keywords that write data or create objects
write_keywords := ["INSERT", "UPDATE", "MERGE", "CREATE"]

deny contains violation if {
	input.context.environment == "production"
	not input.context.dry_run
	some keyword in write_keywords
	regex.match(sprintf("(?i)\\b%s\\b", [keyword]), input.payload)
	not has_approval
	violation := {
		"message": sprintf("Write statement (%s) against production requires the approved=true label", [keyword]),
		"severity": "critical",
	}
}

has_approval if {
	input.labels.approved == "true"
}`,
	}
}
