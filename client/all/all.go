package all

import (
	_ "github.com/sagan/ptxseed/client/qbittorrent"
	_ "github.com/sagan/ptxseed/client/transmission"
)
