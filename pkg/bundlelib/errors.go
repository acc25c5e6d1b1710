package bundlelib

import "errors"

var (
	ErrEmptyOperation        = errors.New("load operation needs at least one bundle")
	ErrNotInFlight           = errors.New("bundle is not in flight")
	ErrIndexOutOfRange       = errors.New("bundle index out of range")
	ErrManifestNotLoaded     = errors.New("manifest is not loaded; call LoadManifest first")
	ErrManifestAlreadyLoaded = errors.New("manifest is already loaded")
	ErrManifestAssetMissing  = errors.New("manifest bundle has no AssetBundleManifest asset")
	ErrInvalidBundle         = errors.New("content is not a valid bundle")
	ErrInvalidName           = errors.New("bundle name escapes its origin")
	ErrNoTransporter         = errors.New("no transporter for configured target")
	ErrUnsupportedScheme     = errors.New("unsupported origin scheme")
	ErrManagerClosed         = errors.New("manager is closed")
	ErrInvalidConfig         = errors.New("invalid configuration")
)
