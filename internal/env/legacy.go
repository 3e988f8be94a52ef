package env

import (
	"iter"

	"rltest/internal/assertion"
	"rltest/internal/deprecation"
	"rltest/internal/query"
)

// legacyNames maps the Env method names older test suites use onto their
// replacements.
var legacyNames = deprecation.Table{
	"AssertEquals":                "AssertEqual",
	"AssertListEqual":             "AssertEqual",
	"AssertIn":                    "AssertContains",
	"AssertNotIn":                 "AssertNotContains",
	"ExecuteCommand":              "Cmd",
	"RetryWithReload":             "ReloadingIterator",
	"RetryWithRdbReload":          "ReloadingIterator",
	"IsClusterEnv":                "IsCluster",
	"IsEnterpriseRedisClusterEnv": "IsEnterpriseCluster",
	"AssertRaises":                "Expect(...).Error",
}

var bridge = deprecation.New(legacyNames, nil)

// Deprecations returns the bridge every legacy Env method goes through.
func Deprecations() *deprecation.Bridge { return bridge }

func (e *Env) expectErrorAt(site assertion.CallSite, args []interface{}) *query.Query {
	return e.Expect(args...).ErrorAt(site)
}

var legacy = struct {
	assertEquals    func(*Env, assertion.CallSite, interface{}, interface{}, []string) bool
	assertListEqual func(*Env, assertion.CallSite, interface{}, interface{}, []string) bool
	assertIn        func(*Env, assertion.CallSite, interface{}, interface{}) bool
	assertNotIn     func(*Env, assertion.CallSite, interface{}, interface{}) bool
	executeCommand  func(*Env, ...interface{}) (interface{}, error)
	retryWithReload func(*Env, assertion.CallSite) iter.Seq[int]
	retryWithRdb    func(*Env, assertion.CallSite) iter.Seq[int]
	isClusterEnv    func(*Env) bool
	isEnterpriseEnv func(*Env) bool
	assertRaises    func(*Env, assertion.CallSite, []interface{}) *query.Query
}{
	assertEquals:    deprecation.Forward(bridge, "AssertEquals", (*Env).assertEqualAt),
	assertListEqual: deprecation.Forward(bridge, "AssertListEqual", (*Env).assertEqualAt),
	assertIn:        deprecation.Forward(bridge, "AssertIn", (*Env).assertContainsAt),
	assertNotIn:     deprecation.Forward(bridge, "AssertNotIn", (*Env).assertNotContainsAt),
	executeCommand:  deprecation.Forward(bridge, "ExecuteCommand", (*Env).Cmd),
	retryWithReload: deprecation.Forward(bridge, "RetryWithReload", (*Env).reloadingIteratorAt),
	retryWithRdb:    deprecation.Forward(bridge, "RetryWithRdbReload", (*Env).reloadingIteratorAt),
	isClusterEnv:    deprecation.Forward(bridge, "IsClusterEnv", (*Env).IsCluster),
	isEnterpriseEnv: deprecation.Forward(bridge, "IsEnterpriseRedisClusterEnv", (*Env).IsEnterpriseCluster),
	assertRaises:    deprecation.Forward(bridge, "AssertRaises", (*Env).expectErrorAt),
}

// Deprecated: use AssertEqual.
func (e *Env) AssertEquals(first, second interface{}, msg ...string) bool {
	return legacy.assertEquals(e, assertion.Here(1), first, second, msg)
}

// Deprecated: use AssertEqual.
func (e *Env) AssertListEqual(first, second interface{}, msg ...string) bool {
	return legacy.assertListEqual(e, assertion.Here(1), first, second, msg)
}

// Deprecated: use AssertContains.
func (e *Env) AssertIn(value, holder interface{}) bool {
	return legacy.assertIn(e, assertion.Here(1), value, holder)
}

// Deprecated: use AssertNotContains.
func (e *Env) AssertNotIn(value, holder interface{}) bool {
	return legacy.assertNotIn(e, assertion.Here(1), value, holder)
}

// Deprecated: use Cmd.
func (e *Env) ExecuteCommand(args ...interface{}) (interface{}, error) {
	return legacy.executeCommand(e, args...)
}

// Deprecated: use ReloadingIterator.
func (e *Env) RetryWithReload() iter.Seq[int] {
	return legacy.retryWithReload(e, assertion.Here(1))
}

// Deprecated: use ReloadingIterator.
func (e *Env) RetryWithRdbReload() iter.Seq[int] {
	return legacy.retryWithRdb(e, assertion.Here(1))
}

// Deprecated: use IsCluster.
func (e *Env) IsClusterEnv() bool {
	return legacy.isClusterEnv(e)
}

// Deprecated: use IsEnterpriseCluster.
func (e *Env) IsEnterpriseRedisClusterEnv() bool {
	return legacy.isEnterpriseEnv(e)
}

// Deprecated: use Expect(args...).Error().
func (e *Env) AssertRaises(args ...interface{}) *query.Query {
	return legacy.assertRaises(e, assertion.Here(1), args)
}
