// Package policy provides Open Policy Agent (OPA) integration for OpenLRO.
//
// This package implements admission control for operation submissions using
// the Rego policy language. It includes built-in policies for common payload
// governance requirements and supports custom policy loading.
//
// # Architecture
//
// The policy system consists of five main components:
//
//  1. Engine - Compiles and evaluates Rego policies
//  2. Loader - Loads policies from files, directories, and bundles
//  3. Gate - Wraps a remote and denies violating submissions at Start
//  4. Types - Data structures for policies, violations, and results
//  5. Built-in Policies - Pre-defined policies for common requirements
//
// # Usage
//
// Creating a policy engine:
//
//	logger := zerolog.New(os.Stdout)
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Evaluating a submission:
//
//	input := &policy.PolicyInput{
//	    Payload: "SELECT * FROM users",
//	    Labels: map[string]string{
//	        "owner": "analytics-team",
//	    },
//	}
//
//	result, err := engine.EvaluateSubmission(ctx, input)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !result.Allowed {
//	    for _, violation := range result.Violations {
//	        fmt.Printf("Policy %s violated: %s\n", violation.Policy, violation.Message)
//	    }
//	}
//
// Loading custom policies:
//
//	paths := []string{
//	    "/etc/openlro/policies",
//	    "/opt/policies/custom.rego",
//	}
//
//	err = engine.LoadPolicies(ctx, paths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Gating Submissions
//
// The gate wraps any lro.Remote. When a submission violates policy, Start
// returns a DenialError and the orchestrator resolves the run as a
// submission failure; the inner remote is never called:
//
//	gated := policy.NewGatedRemote(remote, engine, policy.GateConfig{
//	    Labels: req.Labels,
//	})
//	runner, err := lro.NewRunner(gated, opts)
//
// # Built-in Policies
//
// The following policies are included by default:
//
//  1. destructive-statements - Blocks DROP/TRUNCATE/DELETE and similar keywords
//  2. payload-limits - Rejects empty and oversized payloads
//  3. required-labels - Ensures the owner label is present in production
//  4. retry-budget - Warns about excessive retry budget overrides
//  5. environment-restrictions - Requires approval for production writes
//
// # Custom Policies
//
// Custom policies can be written in Rego and loaded from files:
//
//	package custom.policies.tables
//
//	import rego.v1
//
//	deny contains violation if {
//	    # Block queries against the audit schema
//	    regex.match(`(?i)\baudit\.`, input.payload)
//
//	    violation := {
//	        "message": "Queries against the audit schema are not allowed",
//	        "severity": "error",
//	    }
//	}
//
// # Severity Levels
//
// Violations have four severity levels:
//
//   - info: Informational messages
//   - warning: Issues that should be reviewed but don't block submissions
//   - error: Issues that block submissions
//   - critical: Severe issues requiring immediate attention
//
// Only error and critical violations deny a submission; info and warning
// violations are reported but the submission proceeds.
//
// # Hot Reload
//
// The loader supports watching policy files for changes and reloading automatically:
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, func(policies []policy.Policy) error {
//	    return engine.AddPolicies(ctx, policies)
//	})
//
// # Performance
//
// Policies are compiled once and reused for multiple evaluations. The engine
// uses OPA's PreparedEvalQuery for compile-time validation and caches loaded
// files at the loader level.
//
// # Context Injection
//
// Policy evaluations can include context information:
//
//   - User: Who initiated the submission
//   - Environment: Target environment (production, staging, etc.)
//   - Operation: Type of operation (submit, check)
//   - Timestamp: When the evaluation occurred
//   - Dry run: Whether this is a dry-run evaluation
//
// This context allows policies to make environment-aware decisions.
package policy
