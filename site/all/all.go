package all

import (
	_ "github.com/sagan/ptxseed/site/nexusphp"
	_ "github.com/sagan/ptxseed/site/tpl"
)
