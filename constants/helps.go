package constants

const HELP_CONFIG = `Config file is searched in the following order:
~/.config/ptxseed/ptxseed.toml, ~/.config/ptxseed/ptxseed.yaml, ./ptxseed.toml, ./ptxseed.yaml.
Values of passkey, cookie and password can reference environment variables (e.g. "${MY_PASSKEY}").
A ".env" file in current dir is loaded before reading config`

const HELP_INFOHASH_ARGS = `Args list is an info-hash list of torrents.
Use a single "-" as args to read the list from stdin, delimited by blanks`
