// Package secret expands configuration text and resolves secret references.
//
// ExpandEnvStrict expands ${VAR} references and fails on unset ones. After
// decoding, a Resolver replaces "secretref:<provider>:<ref>" values with the
// provider's value. The built-in FileProvider reads container secret mounts:
//
//	auth:
//	  secret: secretref:file:sidenav_jwt
package secret
