package version

// Build is the tag every API response carries as plugin_version. Clients
// compare it against their own build and force a one-time reload on
// mismatch, so it must change on every deploy.
const Build = "1.6.0"
