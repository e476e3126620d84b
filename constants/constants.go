package constants

const TORRENT_FILE_EXT = ".torrent"

// qBittorrent keeps trackers of a torrent in "<info-hash>.fastresume" beside the .torrent file.
const FASTRESUME_FILE_EXT = ".fastresume"

// Max number of pieces hashes that can be queried in one site api request.
const MAX_PIECES_HASH_BATCH = 100

const NONE = "none"
