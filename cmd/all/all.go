package all

import (
	_ "github.com/sagan/ptxseed/cmd"
	_ "github.com/sagan/ptxseed/cmd/cache"
	_ "github.com/sagan/ptxseed/cmd/daemon"
	_ "github.com/sagan/ptxseed/cmd/parsetorrent"
	_ "github.com/sagan/ptxseed/cmd/poll"
	_ "github.com/sagan/ptxseed/cmd/queue"
	_ "github.com/sagan/ptxseed/cmd/run"
	_ "github.com/sagan/ptxseed/cmd/sites"
	_ "github.com/sagan/ptxseed/cmd/versioncmd"
)
