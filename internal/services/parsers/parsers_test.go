package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/models"
)

const nmapScanXML = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun>
  <host>
    <status state="up"/>
    <address addr="192.168.1.10" addrtype="ipv4"/>
    <hostnames>
      <hostname name="web.example.com" type="PTR"/>
    </hostnames>
    <ports>
      <port protocol="tcp" portid="22">
        <state state="open"/>
        <service name="ssh" product="OpenSSH" version="8.9p1"/>
      </port>
      <port protocol="tcp" portid="80">
        <state state="open"/>
        <service name="http" product="nginx" version="1.22.1"/>
      </port>
      <port protocol="tcp" portid="8080">
        <state state="closed"/>
      </port>
    </ports>
  </host>
  <host>
    <status state="down"/>
    <address addr="192.168.1.11" addrtype="ipv4"/>
  </host>
</nmaprun>`

func TestNmapParser_Parse(t *testing.T) {
	parser := &NmapParser{}

	t.Run("hosts and open ports", func(t *testing.T) {
		out, err := parser.Parse(nmapScanXML, nil)
		require.NoError(t, err)

		// one host, one hostname, two open service assets; down host skipped
		require.Len(t, out.Assets, 4)

		host := out.Assets[0]
		assert.Equal(t, models.AssetTypeHost, host.Type)
		assert.Equal(t, "192.168.1.10", host.Value)
		assert.Contains(t, host.Tags, "nmap")

		domain := out.Assets[1]
		assert.Equal(t, models.AssetTypeDomain, domain.Type)
		assert.Equal(t, "web.example.com", domain.Value)
		assert.Equal(t, "192.168.1.10", domain.ParentHint)

		ssh := out.Assets[2]
		assert.Equal(t, models.AssetTypeService, ssh.Type)
		assert.Equal(t, "192.168.1.10:22/tcp", ssh.Value)
		assert.Equal(t, 22, ssh.Port)
		assert.Equal(t, "ssh", ssh.Service)
		assert.Equal(t, "8.9p1", ssh.Version)

		// each open port yields a port result and a service result
		require.Len(t, out.Results, 4)
		assert.Equal(t, models.ResultTypePort, out.Results[0].Type)
		assert.Equal(t, 22, out.Results[0].ParsedData["port"])
		assert.Equal(t, models.ResultTypeService, out.Results[1].Type)
	})

	t.Run("smb-vuln script produces critical finding", func(t *testing.T) {
		xmlWithScript := `<nmaprun>
  <host>
    <status state="up"/>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="445">
        <state state="open"/>
        <service name="microsoft-ds"/>
        <script id="smb-vuln-ms17-010" output="VULNERABLE: Remote Code Execution vulnerability in Microsoft SMBv1"/>
      </port>
    </ports>
  </host>
</nmaprun>`

		out, err := parser.Parse(xmlWithScript, nil)
		require.NoError(t, err)
		require.Len(t, out.Vulnerabilities, 1)

		vuln := out.Vulnerabilities[0]
		assert.Equal(t, "SMB Vulnerability: smb-vuln-ms17-010", vuln.Title)
		assert.Equal(t, models.SeverityCritical, vuln.Severity)
		assert.Contains(t, vuln.CVEIDs, "CVE-2017-0144")
		assert.Equal(t, "10.0.0.5", vuln.AssetValue)
		assert.Equal(t, 445, vuln.Port)
	})

	t.Run("not vulnerable script output is skipped", func(t *testing.T) {
		xmlClean := `<nmaprun>
  <host>
    <status state="up"/>
    <address addr="10.0.0.6" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="443">
        <state state="open"/>
        <script id="ssl-heartbleed" output="NOT VULNERABLE"/>
      </port>
    </ports>
  </host>
</nmaprun>`

		out, err := parser.Parse(xmlClean, nil)
		require.NoError(t, err)
		assert.Empty(t, out.Vulnerabilities)
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := parser.Parse("", nil)
		require.NoError(t, err)
		assert.Empty(t, out.Assets)
	})

	t.Run("malformed xml is an error", func(t *testing.T) {
		_, err := parser.Parse("<nmaprun><host>", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nmap xml parse error")
	})
}

func TestNucleiParser_Parse(t *testing.T) {
	parser := &NucleiParser{}

	t.Run("jsonl findings", func(t *testing.T) {
		raw := `[INF] Using Nuclei Engine 3.1.0
{"template-id":"exposed-env","host":"https://app.example.com","matched-at":"https://app.example.com/.env","info":{"name":"Exposed .env File","severity":"high","description":"Environment file disclosure","tags":"exposure,config"}}
{"template-id":"cve-2021-44228","host":"https://app.example.com","matched-at":"https://app.example.com/api","info":{"name":"Log4j RCE","severity":"critical","classification":{"cve-id":["CVE-2021-44228"],"cvss-score":10.0}}}
not json at all`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		require.Len(t, out.Vulnerabilities, 2)

		first := out.Vulnerabilities[0]
		assert.Equal(t, "Exposed .env File", first.Title)
		assert.Equal(t, models.SeverityHigh, first.Severity)
		assert.Equal(t, "exposed-env", first.TemplateID)
		assert.Equal(t, "https://app.example.com/.env", first.URL)
		assert.Contains(t, first.Tags, "nuclei")
		assert.Contains(t, first.Tags, "exposure")

		second := out.Vulnerabilities[1]
		assert.Equal(t, models.SeverityCritical, second.Severity)
		assert.Contains(t, second.CVEIDs, "CVE-2021-44228")
		require.NotNil(t, second.CVSSScore)
		assert.Equal(t, 10.0, *second.CVSSScore)

		// one URL asset plus one domain asset for the shared host
		require.Len(t, out.Assets, 2)
		assert.Equal(t, models.AssetTypeURL, out.Assets[0].Type)
		assert.Equal(t, "https://app.example.com", out.Assets[0].Value)
		assert.Equal(t, models.AssetTypeDomain, out.Assets[1].Type)
		assert.Equal(t, "app.example.com", out.Assets[1].Value)
	})

	t.Run("unknown severity defaults to info", func(t *testing.T) {
		raw := `{"template-id":"tech-detect","host":"http://10.0.0.1","info":{"name":"Tech Detect","severity":"weird"}}`
		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		require.Len(t, out.Vulnerabilities, 1)
		assert.Equal(t, models.SeverityInfo, out.Vulnerabilities[0].Severity)
	})

	t.Run("garbage only yields empty output", func(t *testing.T) {
		out, err := parser.Parse("banner line\nanother line\n{broken json", nil)
		require.NoError(t, err)
		assert.Empty(t, out.Vulnerabilities)
		assert.Empty(t, out.Assets)
		assert.Len(t, out.Errors, 1)
	})

	t.Run("undecodable line keeps surrounding findings", func(t *testing.T) {
		raw := `{"template-id":"first","host":"http://10.0.0.1","info":{"name":"First","severity":"low"}}
{"template-id":"broken","host":"http://10.0.0.1","info":{"name":
{"template-id":"last","host":"http://10.0.0.1","info":{"name":"Last","severity":"low"}}`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		assert.Len(t, out.Vulnerabilities, 2)
		require.Len(t, out.Errors, 1)
		assert.Contains(t, out.Errors[0], "line 2")
	})
}

func TestHydraParser_Parse(t *testing.T) {
	parser := &HydraParser{}

	t.Run("cracked logins", func(t *testing.T) {
		raw := `Hydra v9.4 (c) 2022 by van Hauser/THC
[DATA] attacking ssh://192.168.1.50:22/
[22][ssh] host: 192.168.1.50   login: root   password: toor123
[3306][mysql] host: db.internal.lan   login: app   password: s3cret!
1 of 1 target successfully completed`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		require.Len(t, out.Credentials, 2)

		ssh := out.Credentials[0]
		assert.Equal(t, models.CredentialTypePassword, ssh.Type)
		assert.Equal(t, "root", ssh.Username)
		assert.Equal(t, "toor123", ssh.Password)
		assert.Equal(t, "ssh", ssh.Service)
		assert.Equal(t, "192.168.1.50", ssh.Host)
		assert.Equal(t, 22, ssh.Port)
		require.NotNil(t, ssh.IsValid)
		assert.True(t, *ssh.IsValid)

		mysql := out.Credentials[1]
		assert.Equal(t, "db.internal.lan", mysql.Host)
		assert.Equal(t, 3306, mysql.Port)

		// host + service asset per credential
		require.Len(t, out.Assets, 4)
		assert.Equal(t, models.AssetTypeHost, out.Assets[0].Type)
		assert.Equal(t, models.AssetTypeService, out.Assets[1].Type)
		assert.Equal(t, "192.168.1.50:22/ssh", out.Assets[1].Value)
		assert.Equal(t, models.AssetTypeDomain, out.Assets[2].Type)
	})

	t.Run("duplicate lines deduplicated", func(t *testing.T) {
		raw := `[22][ssh] host: 10.1.1.1   login: admin   password: admin
[22][ssh] host: 10.1.1.1   login: admin   password: admin`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		assert.Len(t, out.Credentials, 1)
	})
}

func TestBurpParser_Parse(t *testing.T) {
	parser := &BurpParser{}

	t.Run("scanner issues", func(t *testing.T) {
		raw := `<?xml version="1.0"?>
<issues>
  <issue>
    <name>Cross-site scripting (reflected)</name>
    <host ip="203.0.113.9">https://shop.example.com</host>
    <path>/search</path>
    <severity>High</severity>
    <confidence>Certain</confidence>
    <type>2097920</type>
    <issueBackground>&lt;p&gt;Reflected XSS arises when&amp;nbsp;input is echoed.&lt;/p&gt;</issueBackground>
    <references>&lt;a href="https://owasp.org/xss"&gt;OWASP&lt;/a&gt;</references>
  </issue>
</issues>`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)

		require.Len(t, out.Vulnerabilities, 1)
		vuln := out.Vulnerabilities[0]
		assert.Equal(t, "Cross-site scripting (reflected)", vuln.Title)
		assert.Equal(t, models.SeverityHigh, vuln.Severity)
		assert.Equal(t, "burp-2097920", vuln.TemplateID)
		assert.Equal(t, "https://shop.example.com/search", vuln.URL)
		assert.Equal(t, "Reflected XSS arises when input is echoed.", vuln.Description)
		assert.Equal(t, []string{"https://owasp.org/xss"}, vuln.References)

		require.Len(t, out.Assets, 1)
		assert.Equal(t, models.AssetTypeURL, out.Assets[0].Type)
		assert.Contains(t, out.Assets[0].Tags, "burp")
	})

	t.Run("http history items", func(t *testing.T) {
		raw := `<items>
  <item>
    <host>api.example.com</host>
    <port>8443</port>
    <protocol>https</protocol>
    <path>/v1/users</path>
    <method>GET</method>
    <status>200</status>
  </item>
</items>`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		require.Len(t, out.Assets, 1)
		assert.Equal(t, "https://api.example.com:8443/v1/users", out.Assets[0].Value)
		assert.Contains(t, out.Assets[0].Tags, "http-history")
	})

	t.Run("malformed xml is an error", func(t *testing.T) {
		_, err := parser.Parse("<issues><issue>", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "burp xml parse error")
	})

	t.Run("byte order mark stripped", func(t *testing.T) {
		raw := "\ufeff" + `<items>
  <item>
    <host>api.example.com</host>
    <port>443</port>
    <protocol>https</protocol>
    <path>/health</path>
    <method>GET</method>
    <status>200</status>
  </item>
</items>`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		require.Len(t, out.Assets, 1)
		assert.Equal(t, "https://api.example.com/health", out.Assets[0].Value)
	})
}

func TestNessusParser_Parse(t *testing.T) {
	parser := &NessusParser{}

	t.Run("byte order mark stripped", func(t *testing.T) {
		raw := "\ufeff" + `<?xml version="1.0"?>
<NessusClientData_v2>
  <Report name="weekly">
    <ReportHost name="10.0.0.9">
      <HostProperties>
        <tag name="host-ip">10.0.0.9</tag>
        <tag name="host-fqdn">db.internal.lan</tag>
      </HostProperties>
      <ReportItem pluginID="10863" pluginName="SSL Certificate Expiry" port="443" protocol="tcp" svc_name="https" severity="2">
        <description>The remote certificate has expired.</description>
        <solution>Renew the certificate.</solution>
      </ReportItem>
    </ReportHost>
  </Report>
</NessusClientData_v2>`

		out, err := parser.Parse(raw, nil)
		require.NoError(t, err)
		require.Len(t, out.Assets, 1)
		assert.Equal(t, "10.0.0.9", out.Assets[0].Value)
		require.Len(t, out.Vulnerabilities, 1)
		assert.Equal(t, "SSL Certificate Expiry", out.Vulnerabilities[0].Title)
		assert.Equal(t, models.SeverityMedium, out.Vulnerabilities[0].Severity)
		assert.Equal(t, "nessus-10863", out.Vulnerabilities[0].TemplateID)
	})

	t.Run("malformed xml is an error", func(t *testing.T) {
		_, err := parser.Parse("<NessusClientData_v2><Report>", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nessus xml parse error")
	})
}

func TestJSONReportParsers_RecoverableErrors(t *testing.T) {
	t.Run("ffuf", func(t *testing.T) {
		out, err := (&FFUFParser{}).Parse(`{"config": {`, nil)
		require.NoError(t, err)
		assert.Empty(t, out.Assets)
		require.Len(t, out.Errors, 1)
		assert.Contains(t, out.Errors[0], "ffuf json parse error")
	})

	t.Run("nikto", func(t *testing.T) {
		out, err := (&NiktoParser{}).Parse(`{"host": `, nil)
		require.NoError(t, err)
		assert.Empty(t, out.Vulnerabilities)
		require.Len(t, out.Errors, 1)
		assert.Contains(t, out.Errors[0], "nikto json parse error")
	})

	t.Run("wpscan", func(t *testing.T) {
		out, err := (&WPScanParser{}).Parse("banner text {\"target_url\": } trailer", nil)
		require.NoError(t, err)
		assert.Empty(t, out.Assets)
		require.Len(t, out.Errors, 1)
		assert.Contains(t, out.Errors[0], "wpscan json parse error")
	})
}

func TestParseOutput_MergeCarriesErrors(t *testing.T) {
	combined := &ParseOutput{}
	combined.Merge(&ParseOutput{Errors: []string{"line 3: unexpected end of JSON input"}})
	combined.Merge(nil)
	require.Len(t, combined.Errors, 1)
}

func TestRegistry(t *testing.T) {
	t.Run("all format parsers registered", func(t *testing.T) {
		for _, name := range []string{
			"nmap_parser", "masscan_parser", "subfinder_parser", "amass_parser",
			"httpx_parser", "nuclei_parser", "nikto_parser", "gobuster_parser",
			"ffuf_parser", "sqlmap_parser", "wpscan_parser", "hydra_parser",
			"john_parser", "hashcat_parser", "nessus_parser", "burp_parser",
		} {
			p, err := Get(name)
			require.NoError(t, err, name)
			assert.Equal(t, name, p.Name())
		}
	})

	t.Run("unknown parser", func(t *testing.T) {
		_, err := Get("nope_parser")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown parser")
	})
}
