// Copyright 2025 The Tracehound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package probe

import (
	"time"

	"github.com/tracehound/tracehound/pkg/identifier"
)

// Builtins returns the builtin probe catalogue in declaration order.
// Sites known to answer 200 for missing accounts carry content rules,
// not status rules; a status rule against such a site is a false
// positive by construction.
func Builtins() []Probe {
	out := make([]Probe, 0, len(usernameProbes)+len(emailProbes)+len(phoneProbes)+len(domainProbes))
	out = append(out, usernameProbes...)
	out = append(out, emailProbes...)
	out = append(out, phoneProbes...)
	out = append(out, domainProbes...)
	return out
}

var usernameProbes = []Probe{
	{
		ID: "github", DisplayName: "GitHub", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate: "https://github.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "gitlab", DisplayName: "GitLab", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate: "https://gitlab.com/api/v4/users?username={}",
		Rule:        JSONFieldTruthy{Pointer: "/0/id"},
	},
	{
		ID: "bitbucket", DisplayName: "Bitbucket", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://bitbucket.org/api/2.0/workspaces/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "npm", DisplayName: "npm", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://www.npmjs.com/~{}",
		Rule:        StatusExists{},
	},
	{
		ID: "pypi", DisplayName: "PyPI", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://pypi.org/user/{}/",
		Rule:        StatusExists{},
	},
	{
		ID: "dockerhub", DisplayName: "Docker Hub", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://hub.docker.com/v2/users/{}/",
		Rule:        JSONFieldTruthy{Pointer: "/username"},
	},
	{
		ID: "hackernews", DisplayName: "Hacker News", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://hacker-news.firebaseio.com/v0/user/{}.json",
		Rule:        JSONFieldTruthy{Pointer: "/id"},
	},
	{
		ID: "stackoverflow", DisplayName: "Stack Overflow", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://stackoverflow.com/users/filter?search={}",
		Rule:        ContentAbsent{Markers: []string{"No users matched your search"}},
	},
	{
		ID: "keybase", DisplayName: "Keybase", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://keybase.io/_/api/1.0/user/lookup.json?usernames={}",
		Rule:        JSONFieldTruthy{Pointer: "/them/0"},
	},
	{
		ID: "instagram", DisplayName: "Instagram", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate: "https://www.instagram.com/{}/",
		Rule:        ContentAbsent{Markers: []string{"Page Not Found", "isn't available"}},
	},
	{
		ID: "twitter", DisplayName: "Twitter/X", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate: "https://x.com/{}",
		Rule:        ContentAbsent{Markers: []string{"This account doesn’t exist", "Hmm...this page doesn’t exist"}},
	},
	{
		ID: "tiktok", DisplayName: "TikTok", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate: "https://www.tiktok.com/@{}",
		Rule:        ContentAbsent{Markers: []string{"Couldn't find this account"}},
	},
	{
		ID: "reddit", DisplayName: "Reddit", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate:     "https://www.reddit.com/user/{}/about.json",
		Rule:            JSONFieldTruthy{Pointer: "/data/name"},
		MinHostInterval: time.Second,
	},
	{
		ID: "pinterest", DisplayName: "Pinterest", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://www.pinterest.com/{}/",
		Rule:        ContentAbsent{Markers: []string{"User not found"}},
	},
	{
		ID: "tumblr", DisplayName: "Tumblr", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://{}.tumblr.com",
		Rule:        ContentAbsent{Markers: []string{"There's nothing here"}},
	},
	{
		ID: "mastodon-social", DisplayName: "Mastodon (mastodon.social)", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://mastodon.social/api/v1/accounts/lookup?acct={}",
		Rule:        JSONFieldTruthy{Pointer: "/id"},
	},
	{
		ID: "telegram", DisplayName: "Telegram", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate: "https://t.me/{}",
		Rule:        ContentPresent{Markers: []string{"tgme_page_title"}},
	},
	{
		ID: "snapchat", DisplayName: "Snapchat", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://www.snapchat.com/add/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "vk", DisplayName: "VK", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://vk.com/{}",
		Rule:        ContentAbsent{Markers: []string{"This page does not exist", "page has been deleted"}},
	},
	{
		ID: "linktree", DisplayName: "Linktree", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://linktr.ee/{}",
		Rule:        ContentAbsent{Markers: []string{"page isn't available", "404"}},
	},
	{
		ID: "medium", DisplayName: "Medium", Kind: identifier.KindUsername,
		Category: CategoryNews, Tier: TierDeep,
		URLTemplate: "https://medium.com/@{}",
		Rule:        ContentAbsent{Markers: []string{"PAGE NOT FOUND", "Out of nothing, something"}},
	},
	{
		ID: "spotify-user", DisplayName: "Spotify", Kind: identifier.KindUsername,
		Category: CategoryMusic, Tier: TierQuick,
		URLTemplate: "https://open.spotify.com/user/{}",
		Rule:        ContentPresent{Markers: []string{"Public Playlists", "profile"}},
	},
	{
		ID: "soundcloud", DisplayName: "SoundCloud", Kind: identifier.KindUsername,
		Category: CategoryMusic, Tier: TierQuick,
		URLTemplate: "https://soundcloud.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "lastfm", DisplayName: "Last.fm", Kind: identifier.KindUsername,
		Category: CategoryMusic, Tier: TierDeep,
		URLTemplate: "https://www.last.fm/user/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "smule", DisplayName: "Smule", Kind: identifier.KindUsername,
		Category: CategoryMusic, Tier: TierDeep,
		URLTemplate: "https://www.smule.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "steam", DisplayName: "Steam", Kind: identifier.KindUsername,
		Category: CategoryGaming, Tier: TierQuick,
		URLTemplate: "https://steamcommunity.com/id/{}",
		Rule:        ContentAbsent{Markers: []string{"The specified profile could not be found"}},
	},
	{
		ID: "twitch", DisplayName: "Twitch", Kind: identifier.KindUsername,
		Category: CategoryStreaming, Tier: TierQuick,
		URLTemplate: "https://m.twitch.tv/{}",
		Rule:        ContentAbsent{Markers: []string{"content is unavailable"}},
	},
	{
		ID: "youtube", DisplayName: "YouTube", Kind: identifier.KindUsername,
		Category: CategoryStreaming, Tier: TierQuick,
		URLTemplate: "https://www.youtube.com/@{}",
		Rule:        StatusExists{},
	},
	{
		ID: "roblox", DisplayName: "Roblox", Kind: identifier.KindUsername,
		Category: CategoryGaming, Tier: TierDeep,
		URLTemplate: "https://www.roblox.com/user.aspx?username={}",
		Rule:        ContentAbsent{Markers: []string{"Page cannot be found"}},
	},
	{
		ID: "lichess", DisplayName: "Lichess", Kind: identifier.KindUsername,
		Category: CategoryGaming, Tier: TierDeep,
		URLTemplate: "https://lichess.org/api/user/{}",
		Rule:        JSONFieldTruthy{Pointer: "/id"},
	},
	{
		ID: "chesscom", DisplayName: "Chess.com", Kind: identifier.KindUsername,
		Category: CategoryGaming, Tier: TierDeep,
		URLTemplate: "https://api.chess.com/pub/player/{}",
		Rule:        JSONFieldTruthy{Pointer: "/username"},
	},
	{
		ID: "osu", DisplayName: "osu!", Kind: identifier.KindUsername,
		Category: CategoryGaming, Tier: TierDeep,
		URLTemplate: "https://osu.ppy.sh/users/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "deviantart", DisplayName: "DeviantArt", Kind: identifier.KindUsername,
		Category: CategoryArt, Tier: TierDeep,
		URLTemplate: "https://www.deviantart.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "behance", DisplayName: "Behance", Kind: identifier.KindUsername,
		Category: CategoryArt, Tier: TierDeep,
		URLTemplate: "https://www.behance.net/{}",
		Rule:        ContentAbsent{Markers: []string{"Oops! We can’t find that page"}},
	},
	{
		ID: "dribbble", DisplayName: "Dribbble", Kind: identifier.KindUsername,
		Category: CategoryArt, Tier: TierDeep,
		URLTemplate: "https://dribbble.com/{}",
		Rule:        ContentAbsent{Markers: []string{"Whoops, that page is gone"}},
	},
	{
		ID: "flickr", DisplayName: "Flickr", Kind: identifier.KindUsername,
		Category: CategoryArt, Tier: TierDeep,
		URLTemplate: "https://www.flickr.com/people/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "vsco", DisplayName: "VSCO", Kind: identifier.KindUsername,
		Category: CategoryArt, Tier: TierDeep,
		URLTemplate: "https://vsco.co/{}/gallery",
		Rule:        StatusExists{},
	},
	{
		ID: "vimeo", DisplayName: "Vimeo", Kind: identifier.KindUsername,
		Category: CategoryStreaming, Tier: TierDeep,
		URLTemplate: "https://vimeo.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "patreon", DisplayName: "Patreon", Kind: identifier.KindUsername,
		Category: CategoryFinance, Tier: TierDeep,
		URLTemplate: "https://www.patreon.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "cashapp", DisplayName: "Cash App", Kind: identifier.KindUsername,
		Category: CategoryFinance, Tier: TierDeep,
		URLTemplate: "https://cash.app/${}",
		Rule:        StatusExists{},
	},
	{
		ID: "buymeacoffee", DisplayName: "Buy Me a Coffee", Kind: identifier.KindUsername,
		Category: CategoryFinance, Tier: TierDeep,
		URLTemplate: "https://buymeacoffee.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "wattpad", DisplayName: "Wattpad", Kind: identifier.KindUsername,
		Category: CategoryIndonesia, Tier: TierDeep,
		URLTemplate: "https://www.wattpad.com/user/{}",
		Rule:        ContentAbsent{Markers: []string{"not a valid user"}},
	},
	{
		ID: "kaskus", DisplayName: "Kaskus", Kind: identifier.KindUsername,
		Category: CategoryIndonesia, Tier: TierDeep,
		URLTemplate: "https://www.kaskus.co.id/@{}",
		Rule:        ContentAbsent{Markers: []string{"Halaman tidak ditemukan"}},
	},
	{
		ID: "kompasiana", DisplayName: "Kompasiana", Kind: identifier.KindUsername,
		Category: CategoryIndonesia, Tier: TierDeep,
		URLTemplate: "https://www.kompasiana.com/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "badoo", DisplayName: "Badoo", Kind: identifier.KindUsername,
		Category: CategoryDating, Tier: TierDeep,
		URLTemplate: "https://badoo.com/profile/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "pornhub", DisplayName: "Pornhub", Kind: identifier.KindUsername,
		Category: CategoryNSFW, Tier: TierDeep, NSFW: true,
		URLTemplate: "https://www.pornhub.com/users/{}",
		Rule:        ContentAbsent{Markers: []string{"Page Not Found"}},
	},
	{
		ID: "onlyfans", DisplayName: "OnlyFans", Kind: identifier.KindUsername,
		Category: CategoryNSFW, Tier: TierDeep, NSFW: true,
		URLTemplate: "https://onlyfans.com/{}",
		Rule:        ContentAbsent{Markers: []string{"Sorry", "this page is not available"}},
	},
	{
		ID: "ebay-user", DisplayName: "eBay", Kind: identifier.KindUsername,
		Category: CategoryShopping, Tier: TierDeep,
		URLTemplate: "https://www.ebay.com/usr/{}",
		Rule:        ContentAbsent{Markers: []string{"The User ID you entered was not found"}},
	},
	{
		ID: "etsy-shop", DisplayName: "Etsy", Kind: identifier.KindUsername,
		Category: CategoryShopping, Tier: TierDeep,
		URLTemplate: "https://www.etsy.com/shop/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "aboutme", DisplayName: "about.me", Kind: identifier.KindUsername,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://about.me/{}",
		Rule:        StatusExists{},
	},
	{
		ID: "gravatar-user", DisplayName: "Gravatar", Kind: identifier.KindUsername,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://en.gravatar.com/{}.json",
		Rule:        JSONFieldTruthy{Pointer: "/entry/0/hash"},
	},
}

// Email probes mirror the signup/validation endpoints the platforms
// expose. POST bodies carry the identifier through the same {}
// substitution as URLs.
var emailProbes = []Probe{
	{
		ID: "twitter-email", DisplayName: "Twitter/X", Kind: identifier.KindEmail,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate: "https://api.twitter.com/i/users/email_available.json?email={}",
		Rule:        JSONFieldEquals{Pointer: "/taken", Want: true},
	},
	{
		ID: "spotify-email", DisplayName: "Spotify", Kind: identifier.KindEmail,
		Category: CategoryMusic, Tier: TierQuick,
		URLTemplate: "https://spclient.wg.spotify.com/signup/public/v1/account?validate=1&email={}",
		Rule:        JSONFieldEquals{Pointer: "/status", Want: 20},
	},
	{
		ID: "github-email", DisplayName: "GitHub", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate: "https://github.com/signup_check/email?value={}",
		Rule:        ContentPresent{Markers: []string{"already taken"}},
	},
	{
		ID: "gravatar-email", DisplayName: "Gravatar", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate: "https://www.gravatar.com/{}.json",
		Rule:        StatusExists{},
	},
	{
		ID: "firefox-email", DisplayName: "Mozilla", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate:  "https://api.accounts.firefox.com/v1/account/status",
		Method:       MethodPost,
		BodyTemplate: `{"email":"{}"}`,
		Headers:      map[string]string{"Content-Type": "application/json"},
		Rule:         JSONFieldEquals{Pointer: "/exists", Want: true},
	},
	{
		ID: "wordpress-email", DisplayName: "WordPress.com", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://public-api.wordpress.com/rest/v1.1/users/email/{}/auth-options",
		Rule:        JSONFieldTruthy{Pointer: "/passwordless"},
	},
	{
		ID: "tumblr-email", DisplayName: "Tumblr", Kind: identifier.KindEmail,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate:  "https://www.tumblr.com/api/v2/register/email_available",
		Method:       MethodPost,
		BodyTemplate: `{"email":"{}"}`,
		Headers:      map[string]string{"Content-Type": "application/json"},
		Rule:         JSONFieldEquals{Pointer: "/response/available", Want: false},
	},
	{
		ID: "duolingo-email", DisplayName: "Duolingo", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://www.duolingo.com/2017-06-30/users?email={}",
		Rule:        JSONFieldTruthy{Pointer: "/users/0"},
	},
	{
		ID: "notion-email", DisplayName: "Notion", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate:  "https://www.notion.so/api/v3/loginWithEmail",
		Method:       MethodPost,
		BodyTemplate: `{"email":"{}"}`,
		Headers:      map[string]string{"Content-Type": "application/json"},
		Rule:         JSONFieldTruthy{Pointer: "/hasAccount"},
	},
	{
		ID: "adobe-email", DisplayName: "Adobe", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate:  "https://adobeid-na1.services.adobe.com/renga-idprovider/pages/validate_email",
		Method:       MethodPost,
		BodyTemplate: "email={}",
		Headers:      map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Rule:         JSONFieldEquals{Pointer: "/valid", Want: true},
	},
	{
		ID: "etsy-email", DisplayName: "Etsy", Kind: identifier.KindEmail,
		Category: CategoryShopping, Tier: TierDeep,
		URLTemplate: "https://www.etsy.com/api/v3/ajax/member/email-exists?email={}",
		Rule:        JSONFieldEquals{Pointer: "/exists", Want: true},
	},
	{
		ID: "deezer-email", DisplayName: "Deezer", Kind: identifier.KindEmail,
		Category: CategoryMusic, Tier: TierDeep,
		URLTemplate:  "https://www.deezer.com/ajax/gw-light.php?method=user.getEmailValidation&api_token=null&api_version=1.0&input=3",
		Method:       MethodPost,
		BodyTemplate: "email={}",
		Headers:      map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Rule:         JSONFieldTruthy{Pointer: "/results/USER"},
	},
	{
		ID: "patreon-email", DisplayName: "Patreon", Kind: identifier.KindEmail,
		Category: CategoryFinance, Tier: TierDeep,
		URLTemplate:  "https://www.patreon.com/api/auth/signup",
		Method:       MethodPost,
		BodyTemplate: `{"email":"{}","password":"Str0ngPlaceholder!"}`,
		Headers:      map[string]string{"Content-Type": "application/json"},
		Rule:         ContentPresent{Markers: []string{"already", "taken"}},
	},
	{
		ID: "pinterest-email", DisplayName: "Pinterest", Kind: identifier.KindEmail,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://www.pinterest.com/_ngjs/resource/EmailExistsResource/get/?source_url=%2F&data=%7B%22options%22%3A%7B%22email%22%3A%22{}%22%7D%2C%22context%22%3A%7B%7D%7D",
		Rule:        JSONFieldTruthy{Pointer: "/resource_response/data"},
	},
	{
		ID: "atlassian-email", DisplayName: "Atlassian", Kind: identifier.KindEmail,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate: "https://id.atlassian.com/login?email={}",
		Rule:        ContentPresent{Markers: []string{"Enter your password"}},
	},
}

var phoneProbes = []Probe{
	{
		ID: "telegram-phone", DisplayName: "Telegram", Kind: identifier.KindPhone,
		Category: CategorySocial, Tier: TierQuick,
		URLTemplate: "https://t.me/{}",
		Rule:        ContentPresent{Markers: []string{"tgme_page_title"}},
	},
	{
		ID: "whatsapp-phone", DisplayName: "WhatsApp", Kind: identifier.KindPhone,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://wa.me/{}",
		Rule:        ContentAbsent{Markers: []string{"phone number shared via url is invalid"}},
	},
	{
		ID: "viber-phone", DisplayName: "Viber", Kind: identifier.KindPhone,
		Category: CategorySocial, Tier: TierDeep,
		URLTemplate: "https://chats.viber.com/{}",
		Rule:        StatusExists{},
	},
}

var domainProbes = []Probe{
	{
		ID: "site-https", DisplayName: "HTTPS Site", Kind: identifier.KindDomain,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate: "https://{}/",
		Rule:        StatusExists{},
	},
	{
		ID: "crtsh", DisplayName: "Certificate Transparency", Kind: identifier.KindDomain,
		Category: CategoryTech, Tier: TierQuick,
		URLTemplate:     "https://crt.sh/?q={}&output=json",
		Rule:            JSONFieldTruthy{Pointer: "/0/common_name"},
		MinHostInterval: time.Second,
	},
	{
		ID: "wayback", DisplayName: "Wayback Machine", Kind: identifier.KindDomain,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate:     "https://archive.org/wayback/available?url={}",
		Rule:            JSONFieldTruthy{Pointer: "/archived_snapshots/closest"},
		MinHostInterval: time.Second,
	},
	{
		ID: "urlscan", DisplayName: "urlscan.io", Kind: identifier.KindDomain,
		Category: CategoryTech, Tier: TierDeep,
		URLTemplate:     "https://urlscan.io/api/v1/search/?q=domain:{}",
		Rule:            JSONFieldTruthy{Pointer: "/results/0"},
		MinHostInterval: time.Second,
	},
}
