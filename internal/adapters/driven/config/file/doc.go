// Package file provides the TOML configuration store kept in the medreport
// home directory (~/.medreport by default).
package file
