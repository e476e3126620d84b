package tpl

// 站点模板。配置文件中 type 为模板名称的站点，未设置的字段使用模板值。

import (
	"slices"
	"sort"

	"github.com/sagan/ptxseed/config"
	"github.com/sagan/ptxseed/site"
	"github.com/sagan/ptxseed/util"
)

var (
	SITES = map[string]*config.SiteConfigStruct{
		"audiences": {
			Type:    "nexusphp",
			Aliases: []string{"ad"},
			Url:     "https://audiences.me/",
			Domains: []string{"cinefiles.info"},
			Comment: "观众",
		},
		"btschool": {
			Type:    "nexusphp",
			Url:     "https://pt.btschool.club/",
			Comment: "学校",
		},
		"carpt": {
			Type:    "nexusphp",
			Url:     "https://carpt.net/",
			Comment: "CarPT (小车站)",
		},
		"cyanbug": {
			Type:    "nexusphp",
			Url:     "https://cyanbug.net/",
			Comment: "大青虫",
		},
		"hdfans": {
			Type:    "nexusphp",
			Url:     "https://hdfans.org/",
			Comment: "红豆饭",
		},
		"hddolby": {
			Type:    "nexusphp",
			Url:     "https://www.hddolby.com/",
			Comment: "杜比",
		},
		"hdhome": {
			Type:    "nexusphp",
			Url:     "https://hdhome.org/",
			Comment: "家园",
		},
		"hdtime": {
			Type:    "nexusphp",
			Url:     "https://hdtime.org/",
			Comment: "高清时光",
		},
		"hhanclub": {
			Type:    "nexusphp",
			Aliases: []string{"hh", "hhan"},
			Url:     "https://hhanclub.top/",
			Domains: []string{"hhan.club"},
			ApiPath: "nexusapi/pieces-hash",
			Comment: "憨憨",
		},
		"ourbits": {
			Type:    "nexusphp",
			Aliases: []string{"ob"},
			Url:     "https://ourbits.club/",
			Comment: "我堡",
		},
		"pandapt": {
			Type:    "nexusphp",
			Aliases: []string{"panda"},
			Url:     "https://pandapt.net/",
			Comment: "熊猫高清",
		},
		"pthome": {
			Type:    "nexusphp",
			Url:     "https://pthome.net/",
			Comment: "铂金家",
		},
		"pttime": {
			Type:    "nexusphp",
			Aliases: []string{"ptt"},
			Url:     "https://www.pttime.org/",
			Comment: "PTT",
		},
		"wintersakura": {
			Type:    "nexusphp",
			Aliases: []string{"wtsakura"},
			Url:     "https://wintersakura.net/",
			Comment: "冬樱",
		},
		"zmpt": {
			Type:    "nexusphp",
			Url:     "https://zmpt.cc/",
			Comment: "织梦",
		},
	}
	SITENAMES = []string{}
)

func init() {
	for name := range SITES {
		SITENAMES = append(SITENAMES, name)
	}
	sort.Slice(SITENAMES, func(i, j int) bool {
		return SITENAMES[i] < SITENAMES[j]
	})
	aliases := map[string]*config.SiteConfigStruct{}
	for _, name := range SITENAMES {
		for _, alias := range SITES[name].Aliases {
			aliases[alias] = SITES[name]
		}
	}
	for alias, tpl := range aliases {
		SITES[alias] = tpl
	}
	config.SiteTemplateResolver = Apply
}

// Return the directory name (not alias) of a template.
func tplName(tpl *config.SiteConfigStruct) string {
	for _, name := range SITENAMES {
		if SITES[name] == tpl {
			return name
		}
	}
	return ""
}

// Fill empty fields of siteConfig from the template named by it's type.
// The type of siteConfig is replaced by the template's site type (eg. "nexusphp").
func Apply(siteConfig *config.SiteConfigStruct) {
	tpl := SITES[siteConfig.Type]
	if tpl == nil {
		return
	}
	if siteConfig.Name == "" {
		siteConfig.Name = tplName(tpl)
	}
	if siteConfig.Url == "" {
		siteConfig.Url = tpl.Url
	}
	if siteConfig.ApiPath == "" {
		siteConfig.ApiPath = tpl.ApiPath
	}
	if siteConfig.Comment == "" {
		siteConfig.Comment = tpl.Comment
	}
	siteConfig.Domains = util.UniqueSlice(append(util.CopySlice(siteConfig.Domains), tpl.Domains...))
	siteConfig.Aliases = util.UniqueSlice(append(util.CopySlice(siteConfig.Aliases), tpl.Aliases...))
	siteConfig.Type = tpl.Type
}

// Return names and aliases of the template whose url or domains matches domain.
func FindSiteTypesByDomain(domain string) []string {
	if domain == "" {
		return nil
	}
	for _, sitename := range SITENAMES {
		site := SITES[sitename]
		if !config.MatchSite(domain, site) {
			continue
		}
		types := util.CopySlice(site.Aliases)
		types = append(types, sitename)
		return types
	}
	return nil
}

// Return name of the site in siteConfigs that domain belongs to. Empty if none.
func GuessSiteByDomain(domain string, siteConfigs []*config.SiteConfigStruct) string {
	if sitename := site.GetConfigSiteNameByDomain(siteConfigs, domain); sitename != "" {
		return sitename
	}
	siteTypes := FindSiteTypesByDomain(domain)
	if len(siteTypes) == 0 {
		return ""
	}
	for _, siteConfig := range siteConfigs {
		if slices.Contains(siteTypes, siteConfig.GetName()) ||
			slices.ContainsFunc(siteConfig.Aliases, func(alias string) bool {
				return slices.Contains(siteTypes, alias)
			}) {
			return siteConfig.GetName()
		}
	}
	return site.GetConfigSiteNameByTypes(siteConfigs, siteTypes...)
}

func GuessSiteByTrackers(trackers []string, siteConfigs []*config.SiteConfigStruct) string {
	for _, tracker := range trackers {
		domain := util.GetUrlDomain(tracker)
		if domain == "" {
			continue
		}
		if sitename := GuessSiteByDomain(domain, siteConfigs); sitename != "" {
			return sitename
		}
	}
	return ""
}
