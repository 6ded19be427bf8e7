// Package directory maps department names to directory organizational units
// (OUs) used when provisioning accounts.
//
// The table is an ordered list of department/OU pairs. Lookups are
// case-insensitive exact matches on the department name; the first matching
// entry wins and an unknown department yields "". The built-in defaults are
// embedded from defaults.yaml and can be overridden by a YAML file of the
// same shape, optionally reloaded on change:
//
//	mappings:
//	  - department: "ACCOUNTING"
//	    ou: "/Accounting"
package directory
